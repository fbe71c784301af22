package http

import (
	"net/http"

	memorytool "github.com/appu-labs/appu/pkg/agent/tool/memory"
	"github.com/appu-labs/appu/pkg/utils/errutil"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

var errToolNotFound = goerr.New("tool not found")

// listToolsHandler describes the memory tools the conversation model may call
// for this child
func (s *Server) listToolsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, err := childIDParam(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	tools := memorytool.New(s.uc, childID)
	resp := toolListResponse{Tools: make([]toolSpecResponse, 0, len(tools))}
	for _, t := range tools {
		resp.Tools = append(resp.Tools, toToolSpecResponse(t.Spec()))
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// runToolHandler executes one tool call the conversation model asked for.
// Arguments are checked against the tool's parameter spec before the run.
func (s *Server) runToolHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, err := childIDParam(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	name := chi.URLParam(r, "toolName")
	var target gollem.Tool
	for _, t := range memorytool.New(s.uc, childID) {
		if t.Spec().Name == name {
			target = t
			break
		}
	}
	if target == nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(errToolNotFound, "unknown tool", goerr.V("tool", name)), http.StatusNotFound)
		return
	}

	var req toolRunRequest
	if err := decodeBody(r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}
	if req.Args == nil {
		req.Args = map[string]any{}
	}

	spec := target.Spec()
	if err := spec.ValidateArgs(req.Args); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(errBadRequest, "invalid tool arguments", goerr.V("tool", name), goerr.V("cause", err.Error())), http.StatusBadRequest)
		return
	}

	result, err := target.Run(ctx, req.Args)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "tool call failed", goerr.V("tool", name)), statusOf(err))
		return
	}
	writeJSON(ctx, w, http.StatusOK, toolRunResponse{Tool: name, Result: result})
}

func toToolSpecResponse(spec gollem.ToolSpec) toolSpecResponse {
	resp := toolSpecResponse{
		Name:        spec.Name,
		Description: spec.Description,
		Parameters:  make(map[string]toolParameterResponse, len(spec.Parameters)),
	}
	for name, p := range spec.Parameters {
		resp.Parameters[name] = toolParameterResponse{
			Type:        string(p.Type),
			Description: p.Description,
			Required:    p.Required,
		}
	}
	return resp
}
