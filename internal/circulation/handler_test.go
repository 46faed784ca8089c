// internal/circulation/handler_test.go
package circulation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris/internal/circulation"
	"libris/internal/loan"
	"libris/internal/patron"
	"libris/internal/policy"
	"libris/internal/reports"
)

func newServer(t *testing.T) (*httptest.Server, *fixture) {
	t.Helper()
	f := newFixture(t)
	handler := circulation.NewHandler(f.engine, reports.NewAggregator(f.loans))
	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)
	return srv, f
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestCheckoutEndpoint(t *testing.T) {
	srv, f := newServer(t)
	f.addTitle(t, "isbn-1", 1, 10.00)
	f.addPatron(t, "p1", patron.CategoryStudent)

	resp := postJSON(t, srv.URL+"/checkout", `{"title_key":"isbn-1","patron_key":"p1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var l loan.Loan
	decodeBody(t, resp, &l)
	assert.Equal(t, "isbn-1", l.TitleKey)
	assert.Equal(t, loan.StatusActive, l.Status)
	assert.NotEqual(t, uuid.Nil, l.ID)
}

func TestCheckoutEndpointErrorMapping(t *testing.T) {
	srv, f := newServer(t)
	f.addTitle(t, "isbn-1", 1, 10.00)
	f.addPatron(t, "p1", patron.CategoryStudent)
	f.addPatron(t, "p2", patron.CategoryStudent)
	require.NoError(t, f.patrons.Deactivate(context.Background(), "p2"))

	t.Run("malformed body", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/checkout", `{not json`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown title is 404", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/checkout", `{"title_key":"nope","patron_key":"p1"}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("policy violation is 422 with reason", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/checkout", `{"title_key":"isbn-1","patron_key":"p2"}`)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, policy.ReasonAccountInactive, body["reason"])
	})

	t.Run("exhausted copies are 409", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/checkout", `{"title_key":"isbn-1","patron_key":"p1"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		f.addPatron(t, "p3", patron.CategoryStudent)
		resp = postJSON(t, srv.URL+"/checkout", `{"title_key":"isbn-1","patron_key":"p3"}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestLoanActionEndpoints(t *testing.T) {
	srv, f := newServer(t)
	f.addTitle(t, "isbn-1", 1, 10.00)
	f.addPatron(t, "p1", patron.CategoryStudent)

	l, err := f.engine.Checkout(context.Background(), "isbn-1", "p1")
	require.NoError(t, err)

	t.Run("bad loan id", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/loans/not-a-uuid/return", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown loan is 404", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/loans/"+uuid.NewString()+"/return", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("renew then return", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/loans/"+l.ID.String()+"/renew", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var renewed loan.Loan
		decodeBody(t, resp, &renewed)
		assert.Equal(t, 1, renewed.RenewalCount)

		resp = postJSON(t, srv.URL+"/loans/"+l.ID.String()+"/return", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("double return is 409", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/loans/"+l.ID.String()+"/return", "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestOverdueEndpoint(t *testing.T) {
	srv, f := newServer(t)
	f.addTitle(t, "isbn-1", 1, 10.00)
	f.addPatron(t, "p1", patron.CategoryStudent)

	_, err := f.engine.Checkout(context.Background(), "isbn-1", "p1")
	require.NoError(t, err)
	f.clock.Advance(20)

	resp, err := http.Get(srv.URL + "/loans/overdue")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loans []loan.Loan
	decodeBody(t, resp, &loans)
	require.Len(t, loans, 1)
	assert.Equal(t, loan.StatusOverdue, loans[0].Status)
}

func TestReportEndpoints(t *testing.T) {
	srv, f := newServer(t)
	f.addTitle(t, "isbn-1", 2, 10.00)
	f.addPatron(t, "p1", patron.CategoryStudent)
	f.addPatron(t, "p2", patron.CategoryStudent)

	ctx := context.Background()
	l1, err := f.engine.Checkout(ctx, "isbn-1", "p1")
	require.NoError(t, err)
	_, err = f.engine.Checkout(ctx, "isbn-1", "p2")
	require.NoError(t, err)

	f.clock.Advance(20)
	_, err = f.engine.Return(ctx, l1.ID)
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/reports/popular-titles?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var titles []reports.TitleCount
	decodeBody(t, resp, &titles)
	require.Len(t, titles, 1)
	assert.Equal(t, "isbn-1", titles[0].TitleKey)
	assert.Equal(t, 2, titles[0].Loans)

	resp, err = http.Get(srv.URL + "/reports/outstanding-fines")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fines map[string]float64
	decodeBody(t, resp, &fines)
	assert.Equal(t, 3.00, fines["total"], "six late days at $0.50")
}
