package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certledger/internal/commitstore"
	"certledger/internal/ledger"
	"certledger/internal/platform/auth"
	"certledger/internal/registry"
	"certledger/internal/service"
)

const ownerIdentity = "registrar@example.edu"

type HandlerSuite struct {
	suite.Suite
	server     *httptest.Server
	tokens     *auth.TokenService
	ownerToken string
	cancel     context.CancelFunc
}

func (s *HandlerSuite) SetupTest() {
	reg := registry.New(ownerIdentity, registry.NewInMemoryStateStore())
	engine := ledger.NewEngine(reg)
	svc := service.New(engine, commitstore.NewInMemoryStore(),
		service.WithAwaitTimeout(5*time.Second))

	s.tokens = auth.NewTokenService([]byte("test-signing-key"))
	token, err := s.tokens.IssueToken(ownerIdentity, time.Hour)
	s.Require().NoError(err)
	s.ownerToken = token

	handler := New(svc, slog.New(slog.DiscardHandler), s.tokens)
	s.server = httptest.NewServer(NewRouter(handler))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() { _ = engine.Run(ctx) }()
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
	s.cancel()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, path, token string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *HandlerSuite) decode(resp *http.Response, into any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(into))
}

func (s *HandlerSuite) issue() map[string]any {
	resp := s.do(http.MethodPost, "/certificates", s.ownerToken, map[string]any{
		"subject_id":   "210101001",
		"subject_name": "Jane Doe",
		"title":        "Distributed Systems",
		"issuer":       "Example University",
	})
	s.Require().Equal(http.StatusAccepted, resp.StatusCode)
	var receipt map[string]any
	s.decode(resp, &receipt)
	return receipt
}

func (s *HandlerSuite) TestIssue() {
	s.Run("owner issues a certificate", func() {
		receipt := s.issue()
		s.NotEmpty(receipt["certificate_id"])
		s.NotEmpty(receipt["tx_id"])
		s.NotZero(receipt["block_seq"])
	})

	s.Run("missing token is rejected", func() {
		resp := s.do(http.MethodPost, "/certificates", "", map[string]any{})
		defer resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("non-owner token is rejected by the guard", func() {
		token, err := s.tokens.IssueToken("intruder@example.com", time.Hour)
		s.Require().NoError(err)

		resp := s.do(http.MethodPost, "/certificates", token, map[string]any{
			"subject_id":   "1",
			"subject_name": "n",
			"title":        "t",
			"issuer":       "i",
		})
		defer resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("invalid body is a bad request", func() {
		req, err := http.NewRequest(http.MethodPost, s.server.URL+"/certificates",
			bytes.NewBufferString("{not json"))
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+s.ownerToken)
		resp, err := s.server.Client().Do(req)
		s.Require().NoError(err)
		defer resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func (s *HandlerSuite) TestVerifyAndLifecycle() {
	receipt := s.issue()
	certID := receipt["certificate_id"].(string)
	hash := receipt["commitment_hash"].(string)

	s.Run("verify with the commitment hash", func() {
		resp := s.do(http.MethodPost, "/certificates/"+certID+"/verify", "",
			map[string]any{"commitment_hash": hash})
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		var result map[string]any
		s.decode(resp, &result)
		s.Equal(true, result["valid"])
		s.Equal(false, result["is_revoked"])
	})

	s.Run("verify by subject fields", func() {
		resp := s.do(http.MethodPost, "/certificates/"+certID+"/verify", "",
			map[string]any{"subject_id": "210101001", "subject_name": "Jane Doe"})
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		var result map[string]any
		s.decode(resp, &result)
		s.Equal(true, result["valid"])
	})

	s.Run("revoke then verify reports revoked", func() {
		resp := s.do(http.MethodPost, "/certificates/"+certID+"/revoke", s.ownerToken, nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = s.do(http.MethodPost, "/certificates/"+certID+"/verify", "",
			map[string]any{"commitment_hash": hash})
		var result map[string]any
		s.decode(resp, &result)
		s.Equal(false, result["valid"])
		s.Equal(true, result["is_revoked"])
	})

	s.Run("second revoke conflicts", func() {
		resp := s.do(http.MethodPost, "/certificates/"+certID+"/revoke", s.ownerToken, nil)
		defer resp.Body.Close()
		s.Equal(http.StatusConflict, resp.StatusCode)
	})

	s.Run("verify without hash or subject is a validation error", func() {
		resp := s.do(http.MethodPost, "/certificates/"+certID+"/verify", "", map[string]any{})
		defer resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("verify an unknown certificate degrades to invalid", func() {
		resp := s.do(http.MethodPost, "/certificates/does-not-exist/verify", "",
			map[string]any{"commitment_hash": hash})
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		var result map[string]any
		s.decode(resp, &result)
		s.Equal(false, result["valid"])
		s.Nil(result["issued_at"])
		s.Empty(result["title"])
	})
}

func (s *HandlerSuite) TestReads() {
	receipt := s.issue()
	certID := receipt["certificate_id"].(string)
	txID := receipt["tx_id"].(string)

	s.Run("get certificate returns the record", func() {
		resp := s.do(http.MethodGet, "/certificates/"+certID, "", nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		var record map[string]any
		s.decode(resp, &record)
		s.Equal(certID, record["certificate_id"])
		s.Equal("Distributed Systems", record["title"])
		s.Nil(record["expires_at"])
	})

	s.Run("get unknown certificate is 404", func() {
		resp := s.do(http.MethodGet, "/certificates/nope", "", nil)
		defer resp.Body.Close()
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})

	s.Run("tx status reports finalized", func() {
		resp := s.do(http.MethodGet, "/tx/"+txID, "", nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		var tx map[string]any
		s.decode(resp, &tx)
		s.Equal("finalized", tx["status"])
	})

	s.Run("unknown tx reports pending", func() {
		resp := s.do(http.MethodGet, "/tx/unknown-tx", "", nil)
		var tx map[string]any
		s.decode(resp, &tx)
		s.Equal("pending", tx["status"])
	})

	s.Run("owner and status are public", func() {
		resp := s.do(http.MethodGet, "/owner", "", nil)
		var owner map[string]any
		s.decode(resp, &owner)
		s.Equal(ownerIdentity, owner["owner"])

		resp = s.do(http.MethodGet, "/status", "", nil)
		var status map[string]any
		s.decode(resp, &status)
		s.Equal(ownerIdentity, status["owner"])
	})

	s.Run("local entries require auth", func() {
		resp := s.do(http.MethodGet, "/certificates/local", "", nil)
		resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)

		resp = s.do(http.MethodGet, "/certificates/local", s.ownerToken, nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		var entries []map[string]any
		s.decode(resp, &entries)
		s.NotEmpty(entries)
	})
}
