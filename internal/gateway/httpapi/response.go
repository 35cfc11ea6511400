// Copyright (c) 2026 Sigma. All rights reserved.

package httpapi

import (
	"net/http"

	"github.com/sigma-gateway/sigma/internal/platform/respond"
	"github.com/sigma-gateway/sigma/pkg/pointer"
)

// writeList renders a full-collection or filtered read as a bare JSON
// array (§4.10: "Lists of documents serialize to a JSON array").
func writeList(w http.ResponseWriter, res *ListResult, timeFormat string) {
	docs := make([]any, 0, len(res.Documents))
	for _, doc := range res.Documents {
		docs = append(docs, applyTimeFormat(doc, timeFormat))
	}
	respond.JSON(w, http.StatusOK, docs)
}

type sequencePage struct {
	Data         []map[string]any `json:"data"`
	NextSequence int64            `json:"nextSequence"`
	HasMore      bool             `json:"hasMore"`
}

// writeSequence renders a change-feed page (§4.10: "{data, nextSequence, hasMore}").
func writeSequence(w http.ResponseWriter, res *SequenceResult, timeFormat string) {
	data := make([]map[string]any, 0, len(res.Events))
	for _, ev := range res.Events {
		doc := applyTimeFormat(ev.Doc, timeFormat)
		if m, ok := doc.(map[string]any); ok {
			m["_op"] = string(ev.Op)
			m["_sequence"] = ev.Sequence
			m["_id"] = ev.Key
			data = append(data, m)
		}
	}
	respond.JSON(w, http.StatusOK, sequencePage{Data: data, NextSequence: res.NextSeq, HasMore: res.HasMore})
}

type writeResponse struct {
	Type          string  `json:"type"`
	Success       bool    `json:"success"`
	AffectedCount int     `json:"affectedCount"`
	Message       string  `json:"message,omitempty"`
	InsertedIDs   []int64 `json:"insertedIds,omitempty"`
	Matched       *int    `json:"matched,omitempty"`
	Modified      *int    `json:"modified,omitempty"`
	DeletedCount  *int    `json:"deletedCount,omitempty"`
	WasInserted   *bool   `json:"wasInserted,omitempty"`
	DocumentID    *int64  `json:"documentId,omitempty"`
}

// writeResult renders a write outcome per §4.10's polymorphic envelope,
// choosing 201 for an insert and 200 otherwise.
func writeResult(w http.ResponseWriter, res *Result) {
	body := writeResponse{
		Type:          res.Type,
		Success:       res.Success,
		AffectedCount: res.AffectedCount,
		Message:       res.Message,
		InsertedIDs:   res.InsertedIDs,
	}

	status := http.StatusOK
	switch res.Type {
	case "create":
		status = http.StatusCreated
	case "update", "upsert":
		body.Matched = pointer.To(res.Matched)
		body.Modified = pointer.To(res.Modified)
		if res.Type == "upsert" {
			body.WasInserted = pointer.To(res.WasInserted)
			if res.WasInserted {
				status = http.StatusCreated
				body.DocumentID = pointer.To(res.DocumentID)
			}
		}
	case "delete":
		body.DeletedCount = pointer.To(res.DeletedCount)
		if res.DocumentID != 0 {
			body.DocumentID = pointer.To(res.DocumentID)
		}
	}

	respond.JSON(w, status, body)
}
