package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"portfoliotracker/pkg/portfolio"
)

func TestWriteSuccess(t *testing.T) {
	rr := httptest.NewRecorder()
	writeSuccess(rr, map[string]string{"ok": "yes"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != 0 || resp.Notice != nil {
		t.Fatalf("unexpected envelope %+v", resp)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok || data["ok"] != "yes" {
		t.Fatalf("unexpected data payload: %v", resp.Data)
	}
}

func TestWriteNotice(t *testing.T) {
	rr := httptest.NewRecorder()
	writeNotice(rr, portfolio.Notice{Level: portfolio.NoticeSuccess, Message: "AAPL added to your portfolio!"}, nil)

	var resp Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "AAPL added to your portfolio!" || resp.Notice == nil || resp.Notice.Level != "success" {
		t.Fatalf("unexpected notice response %+v", resp)
	}

	rr = httptest.NewRecorder()
	writeNotice(rr, portfolio.Notice{}, "x")
	resp = Response{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Notice != nil || resp.Message != "" {
		t.Fatalf("empty notice should be omitted, got %+v", resp)
	}
}

func TestWriteErrorResponse(t *testing.T) {
	t.Run("structured error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeErrorResponse(rr, nil, portfolio.NewError(portfolio.ErrCodeNotFound, "missing"))

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rr.Code)
		}
		var resp ErrorResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ErrorCode != string(portfolio.ErrCodeNotFound) || resp.Message != "missing" {
			t.Fatalf("unexpected error response %+v", resp)
		}
	})

	t.Run("wrapped structured error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		err := fmt.Errorf("handler: %w", portfolio.NewError(portfolio.ErrCodeAuth, "sign-in failed"))
		writeErrorResponse(rr, nil, err)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d", rr.Code)
		}
	})

	t.Run("upstream detail is not exposed", func(t *testing.T) {
		rr := httptest.NewRecorder()
		err := portfolio.WrapError(portfolio.ErrCodePersistence, "save failed", errors.New("permission denied on projects/demo"))
		writeErrorResponse(rr, nil, err)
		var resp ErrorResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if rr.Code != http.StatusBadGateway || resp.Message != "save failed" {
			t.Fatalf("unexpected response %d %+v", rr.Code, resp)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeErrorResponse(rr, nil, errors.New("bad input"))
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("expected status 500, got %d", rr.Code)
		}
	})
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code portfolio.ErrorCode
		want int
	}{
		{name: "invalid", code: portfolio.ErrCodeInvalidInput, want: http.StatusBadRequest},
		{name: "validation", code: portfolio.ErrCodeValidation, want: http.StatusBadRequest},
		{name: "not found", code: portfolio.ErrCodeNotFound, want: http.StatusNotFound},
		{name: "auth", code: portfolio.ErrCodeAuth, want: http.StatusUnauthorized},
		{name: "fetch", code: portfolio.ErrCodeFetch, want: http.StatusBadGateway},
		{name: "persistence", code: portfolio.ErrCodePersistence, want: http.StatusBadGateway},
		{name: "database", code: portfolio.ErrCodeDatabase, want: http.StatusInternalServerError},
		{name: "internal", code: portfolio.ErrCodeInternal, want: http.StatusInternalServerError},
		{name: "default", code: portfolio.ErrorCode("UNKNOWN"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErrorCodeToHTTPStatus(tt.code)
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
