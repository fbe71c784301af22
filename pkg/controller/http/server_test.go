package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpctrl "github.com/appu-labs/appu/pkg/controller/http"
	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/repository/memory"
	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func setupServer(t *testing.T) (*httptest.Server, interfaces.Repository, *usecase.UseCases) {
	t.Helper()
	repo := memory.New()
	uc := usecase.New(repo)
	srv := httptest.NewServer(httpctrl.New(uc,
		httpctrl.WithMetricsHandler(uc.Metrics().Handler()),
	))
	t.Cleanup(srv.Close)
	return srv, repo, uc
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	gt.NoError(t, err).Required()
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	gt.NoError(t, err).Required()
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	gt.NoError(t, err).Required()
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&v)).Required()
	return v
}

type memoryBody struct {
	ID            string         `json:"id"`
	Content       string         `json:"content"`
	Type          string         `json:"type"`
	Importance    float64        `json:"importance"`
	EmotionalTone string         `json:"emotional_tone"`
	Details       map[string]any `json:"details"`
}

type formationBody struct {
	Memories []memoryBody `json:"memories"`
	Errors   []string     `json:"errors"`
}

func TestServer_Health(t *testing.T) {
	srv, _, _ := setupServer(t)

	resp := get(t, srv.URL+"/health")
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	body := decode[map[string]string](t, resp)
	gt.Value(t, body["status"]).Equal("ok")
}

func TestServer_FormMemories(t *testing.T) {
	srv, repo, _ := setupServer(t)

	resp := postJSON(t, srv.URL+"/api/children/child-1/turns", map[string]any{
		"text": "I love elephants",
		"role": "user",
	})
	gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)

	body := decode[formationBody](t, resp)
	gt.Array(t, body.Memories).Length(1).Required()
	gt.Value(t, body.Memories[0].Type).Equal("conversational")
	gt.Value(t, body.Memories[0].Importance).Equal(0.6)
	gt.Value(t, body.Memories[0].Details["trigger"]).Equal("love")
	gt.Array(t, body.Errors).Length(0)

	stored, err := repo.Memory().List(context.Background(), "child-1")
	gt.NoError(t, err).Required()
	gt.Array(t, stored).Length(1)
}

func TestServer_FormMemories_NoMatch(t *testing.T) {
	srv, _, _ := setupServer(t)

	resp := postJSON(t, srv.URL+"/api/children/child-1/turns", map[string]any{
		"text": "the sky",
	})
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	body := decode[formationBody](t, resp)
	gt.Array(t, body.Memories).Length(0)
}

func TestServer_FormMemories_BadRequest(t *testing.T) {
	srv, _, _ := setupServer(t)

	testCases := []struct {
		name string
		path string
		body any
	}{
		{"empty text", "/api/children/child-1/turns", map[string]any{"text": "  "}},
		{"unknown role", "/api/children/child-1/turns", map[string]any{"text": "hi", "role": "robot"}},
		{"invalid child", "/api/children/-bad/turns", map[string]any{"text": "I love cats"}},
		{"not json", "/api/children/child-1/turns", "just a string"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+tc.path, tc.body)
			gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
		})
	}
}

func TestServer_Retrieve(t *testing.T) {
	srv, _, uc := setupServer(t)
	ctx := context.Background()

	for _, text := range []string{"I love dinosaurs", "I like trains", "I am so happy"} {
		uc.Formation.FormMemories(ctx, usecase.TurnInput{ChildID: "child-2", Text: text, Role: types.RoleUser})
	}

	type retrievalBody struct {
		Strategy string `json:"strategy"`
		Memories []struct {
			Memory     memoryBody `json:"memory"`
			Similarity float64    `json:"similarity"`
		} `json:"memories"`
	}

	t.Run("keyword", func(t *testing.T) {
		resp := get(t, srv.URL+"/api/children/child-2/memories?q=dinosaur")
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		body := decode[retrievalBody](t, resp)
		gt.Value(t, body.Strategy).Equal("keyword")
		gt.Array(t, body.Memories).Length(1).Required()
		gt.String(t, body.Memories[0].Memory.Content).Contains("dinosaurs")
	})

	t.Run("recent with type filter", func(t *testing.T) {
		resp := get(t, srv.URL+"/api/children/child-2/memories?type=emotional&timeframe=day")
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		body := decode[retrievalBody](t, resp)
		gt.Value(t, body.Strategy).Equal("recent")
		gt.Array(t, body.Memories).Length(1).Required()
		gt.Value(t, body.Memories[0].Memory.Type).Equal("emotional")
	})

	t.Run("invalid parameters", func(t *testing.T) {
		for _, q := range []string{"limit=abc", "limit=-1", "threshold=2", "type=dream", "timeframe=year"} {
			resp := get(t, srv.URL+"/api/children/child-2/memories?"+q)
			gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
		}
	})
}

func TestServer_ChildContext(t *testing.T) {
	srv, _, uc := setupServer(t)
	ctx := context.Background()

	uc.Formation.FormMemories(ctx, usecase.TurnInput{ChildID: "child-3", Text: "I love elephants", Role: types.RoleUser})

	resp := get(t, srv.URL+"/api/children/child-3/context")
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	body := decode[struct {
		ChildID            string   `json:"child_id"`
		ActiveInterests    []string `json:"active_interests"`
		CommunicationStyle string   `json:"communication_style"`
		WindowSize         int      `json:"window_size"`
	}](t, resp)
	gt.Value(t, body.ChildID).Equal("child-3")
	gt.Value(t, body.WindowSize).Equal(1)
	gt.Array(t, body.ActiveInterests).Has("elephant")
}

func TestServer_Consolidate(t *testing.T) {
	srv, repo, uc := setupServer(t)
	ctx := context.Background()

	for range 2 {
		uc.Formation.FormMemories(ctx, usecase.TurnInput{ChildID: "child-4", Text: "I love kites", Role: types.RoleUser})
	}

	t.Run("wait", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/children/child-4/consolidate?wait=true", map[string]any{})
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

		var body struct {
			MergedMemories int `json:"merged_memories"`
		}
		gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body)).Required()
		gt.Value(t, body.MergedMemories).Equal(1)

		stored, err := repo.Memory().List(ctx, "child-4")
		gt.NoError(t, err).Required()
		gt.Array(t, stored).Length(1)
	})

	t.Run("async", func(t *testing.T) {
		uc.Formation.FormMemories(ctx, usecase.TurnInput{ChildID: "child-5", Text: "I like boats", Role: types.RoleUser})
		uc.Formation.FormMemories(ctx, usecase.TurnInput{ChildID: "child-5", Text: "I like boats", Role: types.RoleUser})

		resp := postJSON(t, srv.URL+"/api/children/child-5/consolidate", map[string]any{})
		gt.Value(t, resp.StatusCode).Equal(http.StatusAccepted)

		deadline := time.Now().Add(2 * time.Second)
		for {
			stored, err := repo.Memory().List(ctx, "child-5")
			gt.NoError(t, err).Required()
			if len(stored) == 1 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("async consolidation did not finish, %d memories left", len(stored))
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}

func TestServer_Prompt(t *testing.T) {
	srv, _, _ := setupServer(t)

	resp := postJSON(t, srv.URL+"/api/children/child-6/prompt", map[string]any{
		"name":     "Asha",
		"age":      6,
		"language": "English",
		"likes":    []string{"painting"},
		"milestones": []map[string]any{
			{"description": "Read three-letter words", "progress": 4, "target": 10},
		},
	})
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	var body struct {
		Prompt    string   `json:"prompt"`
		MemoryIDs []string `json:"memory_ids"`
		Context   struct {
			RelationshipLevel int `json:"relationship_level"`
		} `json:"context"`
	}
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body)).Required()
	gt.String(t, body.Prompt).Contains("Likes: painting")
	gt.String(t, body.Prompt).Contains("Read three-letter words: 4/10")
	gt.Value(t, body.Context.RelationshipLevel).Equal(0)
	gt.Array(t, body.MemoryIDs).Length(0)
}

func TestServer_Metrics(t *testing.T) {
	srv, _, _ := setupServer(t)

	postJSON(t, srv.URL+"/api/children/child-7/turns", map[string]any{"text": "I love cats"})

	resp := get(t, srv.URL+"/metrics")
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	gt.NoError(t, err).Required()
	gt.Bool(t, strings.Contains(buf.String(), "appu_memory_formed_total")).True()
}

func TestServer_Tools(t *testing.T) {
	srv, _, uc := setupServer(t)
	ctx := context.Background()

	uc.Formation.FormMemories(ctx, usecase.TurnInput{ChildID: "child-6", Text: "I love dinosaurs", Role: types.RoleUser})

	type runBody struct {
		Tool   string `json:"tool"`
		Result struct {
			Strategy string       `json:"strategy"`
			Memories []memoryBody `json:"memories"`
		} `json:"result"`
	}

	t.Run("list", func(t *testing.T) {
		resp := get(t, srv.URL+"/api/children/child-6/tools")
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

		body := decode[struct {
			Tools []struct {
				Name       string                    `json:"name"`
				Parameters map[string]map[string]any `json:"parameters"`
			} `json:"tools"`
		}](t, resp)
		names := make([]string, 0, len(body.Tools))
		for _, tool := range body.Tools {
			names = append(names, tool.Name)
		}
		gt.Array(t, names).Has("memory__search")
		gt.Array(t, names).Has("memory__child_context")
	})

	t.Run("search", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/children/child-6/tools/memory__search", map[string]any{
			"args": map[string]any{"query": "dinosaur", "limit": 3},
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

		body := decode[runBody](t, resp)
		gt.Value(t, body.Tool).Equal("memory__search")
		gt.Value(t, body.Result.Strategy).Equal("keyword")
		gt.Array(t, body.Result.Memories).Length(1).Required()
		gt.String(t, body.Result.Memories[0].Content).Contains("dinosaurs")
	})

	t.Run("bound to the path child", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/children/child-7/tools/memory__search", map[string]any{
			"args": map[string]any{"query": "dinosaur"},
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		gt.Array(t, decode[runBody](t, resp).Result.Memories).Length(0)
	})

	t.Run("child context", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/children/child-6/tools/memory__child_context", map[string]any{})
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

		body := decode[struct {
			Result map[string]any `json:"result"`
		}](t, resp)
		gt.Value(t, body.Result["memories_considered"]).Equal(any(float64(1)))
	})

	t.Run("unknown tool", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/children/child-6/tools/memory__forget", map[string]any{})
		gt.Value(t, resp.StatusCode).Equal(http.StatusNotFound)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		for _, args := range []map[string]any{
			{"limit": "many"},
			{"type": "dream"},
		} {
			resp := postJSON(t, srv.URL+"/api/children/child-6/tools/memory__search", map[string]any{"args": args})
			gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
		}
	})
}
