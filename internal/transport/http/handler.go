// Package httptransport is the thin HTTP layer over the registry service.
// Handlers delegate to the service and translate domain errors; no business
// logic lives here.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certledger/internal/commitment"
	"certledger/internal/commitstore"
	"certledger/internal/ledger"
	"certledger/internal/platform/middleware"
	"certledger/internal/registry"
	"certledger/internal/service"
	dErrors "certledger/pkg/domain-errors"
	"certledger/pkg/platform/httputil"
)

// Service is the surface the handlers need from the registry service.
type Service interface {
	IssueCertificate(ctx context.Context, caller string, req service.IssueRequest) (service.IssueReceipt, error)
	RevokeCertificate(ctx context.Context, caller, certificateID string) (service.MutationReceipt, error)
	VerifyCertificate(ctx context.Context, certificateID string, hash commitment.Hash) registry.VerifyResult
	VerifyBySubject(ctx context.Context, certificateID, subjectID, subjectName string) (registry.VerifyResult, error)
	GetCertificate(ctx context.Context, certificateID string) (registry.Record, error)
	GetStatus(ctx context.Context) service.Status
	ListLocal(ctx context.Context) ([]commitstore.Entry, error)
	TxReceipt(txID string) (ledger.Receipt, bool)
}

// Handler handles certificate registry endpoints.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New creates a Handler.
func New(svc Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{service: svc, logger: logger, validator: validator}
}

// Register mounts all routes. Mutating routes require a bearer token;
// reads are public.
func (h *Handler) Register(r chi.Router) {
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/certificates", h.handleIssue)
		r.Post("/certificates/{certificateID}/revoke", h.handleRevoke)
		r.Get("/certificates/local", h.handleListLocal)
	})

	r.Post("/certificates/{certificateID}/verify", h.handleVerify)
	r.Get("/certificates/{certificateID}", h.handleGetCertificate)
	r.Get("/tx/{txID}", h.handleTxStatus)
	r.Get("/owner", h.handleOwner)
	r.Get("/status", h.handleStatus)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	receipt, err := h.service.IssueCertificate(ctx, middleware.CallerIdentity(ctx), service.IssueRequest{
		SubjectID:   req.SubjectID,
		SubjectName: req.SubjectName,
		Title:       req.Title,
		Issuer:      req.Issuer,
		ExpiresAt:   req.expiresAt(time.Now().UTC()),
	})
	if err != nil {
		h.writeServiceError(ctx, w, "issue certificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, receipt)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certificateID := chi.URLParam(r, "certificateID")

	receipt, err := h.service.RevokeCertificate(ctx, middleware.CallerIdentity(ctx), certificateID)
	if err != nil {
		h.writeServiceError(ctx, w, "revoke certificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certificateID := chi.URLParam(r, "certificateID")

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	var result registry.VerifyResult
	switch {
	case req.CommitmentHash != "":
		hash, err := commitment.ParseHash(req.CommitmentHash)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed commitment hash"))
			return
		}
		result = h.service.VerifyCertificate(ctx, certificateID, hash)
	case req.SubjectID != "" && req.SubjectName != "":
		var err error
		result, err = h.service.VerifyBySubject(ctx, certificateID, req.SubjectID, req.SubjectName)
		if err != nil {
			h.writeServiceError(ctx, w, "verify certificate", err)
			return
		}
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation,
			"supply commitment_hash, or subject_id and subject_name"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toVerifyResponse(result))
}

func (h *Handler) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certificateID := chi.URLParam(r, "certificateID")

	record, err := h.service.GetCertificate(ctx, certificateID)
	if err != nil {
		h.writeServiceError(ctx, w, "get certificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}

func (h *Handler) handleTxStatus(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "txID")

	receipt, ok := h.service.TxReceipt(txID)
	if !ok {
		httputil.WriteJSON(w, http.StatusOK, txResponse{TxID: txID, Status: "pending"})
		return
	}
	resp := txResponse{TxID: receipt.TxID, BlockSeq: receipt.BlockSeq, Status: "finalized"}
	if receipt.Err != nil {
		resp.Status = "failed"
		resp.Error = string(dErrors.CodeOf(receipt.Err))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleOwner(w http.ResponseWriter, r *http.Request) {
	status := h.service.GetStatus(r.Context())
	httputil.WriteJSON(w, http.StatusOK, ownerResponse{Owner: status.Owner})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.GetStatus(r.Context()))
}

func (h *Handler) handleListLocal(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListLocal(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "list local entries", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "request failed",
			"action", action,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
