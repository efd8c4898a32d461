package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestUnaryInterceptor(t *testing.T) {
	m := New()
	intercept := m.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/sas.storage.v1.AccountStore/Get"}

	_, err := intercept(context.Background(), nil, info, func(context.Context, any) (any, error) { return "ok", nil })
	require.NoError(t, err)
	_, err = intercept(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.NotFound, "missing")
	})
	require.Error(t, err)

	body := scrape(t, m)
	assert.Contains(t, body, `sas_store_grpc_requests_total{code="OK",method="/sas.storage.v1.AccountStore/Get"} 1`)
	assert.Contains(t, body, `sas_store_grpc_requests_total{code="NotFound",method="/sas.storage.v1.AccountStore/Get"} 1`)
	assert.Contains(t, body, `sas_store_grpc_request_duration_seconds_count{method="/sas.storage.v1.AccountStore/Get"} 2`)
}

func TestStreamInterceptor(t *testing.T) {
	m := New()
	info := &grpc.StreamServerInfo{FullMethod: "/sas.storage.v1.AccountStore/Scan", IsServerStream: true}
	err := m.StreamServerInterceptor()(nil, nil, info, func(any, grpc.ServerStream) error { return errors.New("boom") })
	require.Error(t, err)
	assert.Contains(t, scrape(t, m), `sas_store_grpc_requests_total{code="Unknown",method="/sas.storage.v1.AccountStore/Scan"} 1`)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	info := &grpc.UnaryServerInfo{FullMethod: "/m"}
	_, _ = a.UnaryServerInterceptor()(context.Background(), nil, info, func(context.Context, any) (any, error) { return nil, nil })
	assert.NotContains(t, scrape(t, b), `method="/m"`)
}
