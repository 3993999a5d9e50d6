package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/mqtt"
)

// handleListBlocks returns all blocks for an org.
func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")

	blocks, err := s.blocks.List(r.Context(), org)
	if err != nil {
		writeInternalError(w, "failed to list blocks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocks": blocks, "count": len(blocks)})
}

// handleCreateBlock creates a new block. Mode defaults to manual.
func (s *Server) handleCreateBlock(w http.ResponseWriter, r *http.Request) {
	var blk device.Block
	if err := json.NewDecoder(r.Body).Decode(&blk); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if blk.OrgID == "" || blk.Name == "" {
		writeBadRequest(w, "org_id and name are required")
		return
	}

	if err := s.blocks.Create(r.Context(), &blk); err != nil {
		writeInternalError(w, "failed to create block")
		return
	}
	writeJSON(w, http.StatusCreated, blk)
}

// blockModeRequest switches a block between auto and manual operation.
type blockModeRequest struct {
	OrgID   string `json:"org_id"`
	BlockID string `json:"block_id"`
	Mode    string `json:"mode"`
	Actor   string `json:"updated_by"`
}

// handleBlockMode changes a block's operating mode and broadcasts the
// change to the block's subscribers.
func (s *Server) handleBlockMode(w http.ResponseWriter, r *http.Request) {
	var req blockModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.OrgID == "" || req.BlockID == "" {
		writeBadRequest(w, "org_id and block_id are required")
		return
	}

	mode, err := device.ParseMode(req.Mode)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.blocks.SetMode(r.Context(), req.OrgID, req.BlockID, mode, req.Actor); err != nil {
		if errors.Is(err, device.ErrBlockNotFound) {
			writeNotFound(w, "block not found")
			return
		}
		writeInternalError(w, "failed to update block mode")
		return
	}

	s.broadcast(req.OrgID, req.BlockID, mqtt.NewActorEnvelope(mqtt.EventBlockModeUpdate, map[string]any{
		"block_id": req.BlockID,
		"mode":     string(mode),
	}, req.Actor))

	writeJSON(w, http.StatusOK, map[string]any{"block_id": req.BlockID, "mode": mode})
}

// blockThresholdsRequest applies new tank thresholds across a whole block.
type blockThresholdsRequest struct {
	OrgID        string `json:"org_id"`
	BlockID      string `json:"block_id"`
	MinThreshold int    `json:"min_threshold"`
	MaxThreshold int    `json:"max_threshold"`
	Actor        string `json:"updated_by"`
}

// handleBlockThresholds updates the thresholds of every tank in a block.
//
// Writes run in parallel without a transaction; a partial failure leaves
// the succeeded devices updated and reports the rest per device.
func (s *Server) handleBlockThresholds(w http.ResponseWriter, r *http.Request) {
	var req blockThresholdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.OrgID == "" || req.BlockID == "" {
		writeBadRequest(w, "org_id and block_id are required")
		return
	}
	if req.MinThreshold < 0 || req.MaxThreshold > 100 || req.MinThreshold >= req.MaxThreshold {
		writeBadRequest(w, "thresholds must satisfy 0 <= min < max <= 100")
		return
	}

	tanks, err := s.catalog.ListByBlockAndType(r.Context(), req.OrgID, req.BlockID, device.TypeTank)
	if err != nil {
		writeInternalError(w, "failed to list block tanks")
		return
	}
	if len(tanks) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"updated": []string{}, "failed": map[string]string{}})
		return
	}

	ids := make([]string, len(tanks))
	for i, t := range tanks {
		ids[i] = t.ID
	}

	result := s.catalog.UpdateThresholds(r.Context(), req.OrgID, ids, req.MinThreshold, req.MaxThreshold)

	failed := make(map[string]string, len(result.Failed))
	for id, ferr := range result.Failed {
		failed[id] = ferr.Error()
	}

	s.broadcast(req.OrgID, req.BlockID, mqtt.NewActorEnvelope(mqtt.EventUpdateThreshold, map[string]any{
		"block_id":      req.BlockID,
		"min_threshold": req.MinThreshold,
		"max_threshold": req.MaxThreshold,
		"updated":       result.Updated,
	}, req.Actor))

	status := http.StatusOK
	if !result.OK() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, map[string]any{"updated": result.Updated, "failed": failed})
}

// broadcast publishes a block-level envelope. Failures are logged, never
// surfaced; the database write already succeeded.
func (s *Server) broadcast(org, block string, env mqtt.Envelope) {
	if s.transport == nil {
		return
	}
	topic := s.topics.BlockBroadcast(org, block)
	if err := s.transport.PublishEnvelope(topic, env); err != nil {
		s.logger.Error("block broadcast failed", "topic", topic, "error", err)
	}
}
