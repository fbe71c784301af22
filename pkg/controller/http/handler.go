package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/appu-labs/appu/pkg/utils/async"
	"github.com/appu-labs/appu/pkg/utils/errutil"
	"github.com/appu-labs/appu/pkg/utils/safe"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
)

const maxRequestBody = 1 << 20

var errBadRequest = goerr.New("bad request")

func childIDParam(r *http.Request) (types.ChildID, error) {
	childID := types.ChildID(chi.URLParam(r, "childID"))
	if err := childID.Validate(); err != nil {
		return "", goerr.Wrap(errBadRequest, "invalid child ID", goerr.V("child_id", childID))
	}
	return childID, nil
}

func decodeBody(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return goerr.Wrap(errBadRequest, "failed to decode request body", goerr.V("cause", err.Error()))
	}
	return nil
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}

// statusOf maps caller mistakes to 400 and everything else to 500
func statusOf(err error) int {
	if errors.Is(err, errBadRequest) || errors.Is(err, usecase.ErrInvalidQuery) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) formMemoriesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, err := childIDParam(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	var req turnRequest
	if err := decodeBody(r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	in := usecase.TurnInput{
		ChildID:         childID,
		Text:            req.Text,
		Role:            types.Role(req.Role),
		ConversationID:  req.ConversationID,
		ImportanceScore: req.ImportanceScore,
	}
	if in.Role == "" {
		in.Role = types.RoleUser
	}
	if err := in.Validate(); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(errBadRequest, "invalid turn", goerr.V("cause", err.Error())), http.StatusBadRequest)
		return
	}

	result := s.uc.Formation.FormMemories(ctx, in)
	resp := formationResponse{
		Memories: toMemoryResponses(result.Memories),
		Errors:   make([]string, 0, len(result.Errors)),
	}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}

	status := http.StatusCreated
	if len(result.Memories) == 0 {
		status = http.StatusOK
	}
	writeJSON(ctx, w, status, resp)
}

func (s *Server) retrieveHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, err := childIDParam(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	q, err := parseRetrievalQuery(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}
	q.ChildID = childID

	result, err := s.uc.Retrieval.Retrieve(ctx, q)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}

	resp := retrievalResponse{
		Strategy: string(result.Strategy),
		Memories: make([]scoredMemoryResponse, 0, len(result.Memories)),
	}
	for _, sm := range result.Memories {
		resp.Memories = append(resp.Memories, scoredMemoryResponse{
			Memory:     toMemoryResponse(sm.Memory),
			Similarity: sm.Similarity,
		})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func parseRetrievalQuery(r *http.Request) (usecase.RetrievalQuery, error) {
	values := r.URL.Query()
	q := usecase.RetrievalQuery{Query: values.Get("q")}

	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return q, goerr.Wrap(errBadRequest, "invalid limit", goerr.V("limit", v))
		}
		q.Limit = limit
	}
	if v := values.Get("threshold"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, goerr.Wrap(errBadRequest, "invalid threshold", goerr.V("threshold", v))
		}
		q.Threshold = &threshold
	}
	if v := values.Get("type"); v != "" {
		t, err := types.ParseMemoryType(v)
		if err != nil {
			return q, goerr.Wrap(errBadRequest, "invalid memory type", goerr.V("type", v))
		}
		q.Type = t
	}
	if v := values.Get("timeframe"); v != "" {
		tf, err := types.ParseTimeframe(v)
		if err != nil {
			return q, goerr.Wrap(errBadRequest, "invalid timeframe", goerr.V("timeframe", v))
		}
		q.Timeframe = tf
	}
	return q, nil
}

func (s *Server) childContextHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, err := childIDParam(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	childCtx, err := s.uc.ChildContext.Get(ctx, childID)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}
	writeJSON(ctx, w, http.StatusOK, toChildContextResponse(childCtx))
}

// consolidateHandler runs consolidation in the background and answers 202.
// With ?wait=true it runs inline and returns the result.
func (s *Server) consolidateHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, err := childIDParam(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		runCtx, cancel := context.WithTimeout(ctx, s.consolidationTimeout)
		defer cancel()

		result, err := s.uc.Consolidation.Consolidate(runCtx, childID)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, statusOf(err))
			return
		}
		writeJSON(ctx, w, http.StatusOK, toConsolidationResponse(result))
		return
	}

	async.Dispatch(ctx, "consolidate", s.consolidationTimeout, func(ctx context.Context) error {
		_, err := s.uc.Consolidation.Consolidate(ctx, childID)
		return err
	})
	writeJSON(ctx, w, http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"child_id": childID.String(),
	})
}

func (s *Server) promptHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, err := childIDParam(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	var req promptRequest
	if err := decodeBody(r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	in := usecase.PersonalizationInput{
		Profile: model.ChildProfile{
			ChildID:  childID,
			Name:     req.Name,
			Age:      req.Age,
			Language: req.Language,
			Likes:    req.Likes,
			Dislikes: req.Dislikes,
		},
		Query: req.Query,
	}
	for _, m := range req.Milestones {
		in.Milestones = append(in.Milestones, model.Milestone{
			Description: m.Description,
			Progress:    m.Progress,
			Target:      m.Target,
			Completed:   m.Completed,
		})
	}

	prompt, err := s.uc.Personalizer.BuildPrompt(ctx, in)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}

	resp := promptResponse{
		Prompt:    prompt.Text,
		Context:   toChildContextResponse(prompt.Context),
		MemoryIDs: make([]string, 0, len(prompt.Memories)),
	}
	for _, m := range prompt.Memories {
		resp.MemoryIDs = append(resp.MemoryIDs, m.ID.String())
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
