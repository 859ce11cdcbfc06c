// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/atelierline/portal/internal/account"
	"github.com/atelierline/portal/internal/core"
	"github.com/atelierline/portal/internal/lead"
	"github.com/atelierline/portal/internal/middleware"
	"github.com/atelierline/portal/internal/project"
	"github.com/atelierline/portal/internal/provision"
)

type MockResender struct {
	mock.Mock
}

func (m *MockResender) ResendAccessNotice(ctx context.Context, projectID, actor string) (*provision.Result, error) {
	args := m.Called(ctx, projectID, actor)
	var res *provision.Result
	if v := args.Get(0); v != nil {
		res = v.(*provision.Result)
	}
	return res, args.Error(1)
}

type fixedStats struct{}

func (fixedStats) Count(context.Context) (int, error)          { return 7, nil }
func (fixedStats) SumSucceeded(context.Context) (int64, error) { return 1250000, nil }
func (fixedStats) CountByStatus(context.Context) (map[lead.Status]int, error) {
	return map[lead.Status]int{lead.StatusQualified: 3, lead.StatusConverted: 2}, nil
}

func asAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
			AccountID:   "admin-1",
			AccountType: "admin",
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newAdminRouter(resender NoticeResender) chi.Router {
	h := NewHandler(HandlerConfig{
		Projects: fixedStats{},
		Revenue:  fixedStats{},
		Leads:    fixedStats{},
		Notices:  resender,
		DBPing:   func(context.Context) error { return nil },
		RedisPing: func(context.Context) error {
			return errors.New("connection refused")
		},
	})
	r := chi.NewRouter()
	h.RegisterRoutes(r, asAdmin, middleware.RequireAdmin)
	return r
}

func TestGetStats(t *testing.T) {
	rec := httptest.NewRecorder()
	newAdminRouter(new(MockResender)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 7, body.Data.Business.Projects)
	assert.Equal(t, int64(1250000), body.Data.Business.RevenueMinor)
	assert.Equal(t, 3, body.Data.Business.Leads["QUALIFIED"])
	assert.True(t, body.Data.Database.Healthy)
	assert.False(t, body.Data.Redis.Healthy)
}

func TestResendNotice(t *testing.T) {
	projectID := uuid.NewString()
	resender := new(MockResender)
	resender.On("ResendAccessNotice", mock.Anything, projectID, "admin-1").Return(&provision.Result{
		Account:    &account.Account{Email: "dana@example.com"},
		Project:    &project.Project{ID: projectID},
		AccessCode: "AB12CD34",
	}, nil).Once()

	rec := httptest.NewRecorder()
	newAdminRouter(resender).ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/admin/projects/"+projectID+"/resend-notice", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "AB12CD34")
	resender.AssertExpectations(t)
}

func TestResendNoticeErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown project", fmt.Errorf("resend access notice: %w", core.ErrNotFound), http.StatusNotFound},
		{"mail failure", &provision.NotificationError{Err: errors.New("smtp down")}, http.StatusBadGateway},
		{"rollback", &provision.TransactionError{Err: errors.New("deadlock")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resender := new(MockResender)
			resender.On("ResendAccessNotice", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := httptest.NewRecorder()
			newAdminRouter(resender).ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
				"/admin/projects/"+uuid.NewString()+"/resend-notice", nil))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestResendNoticeMalformedID(t *testing.T) {
	resender := new(MockResender)

	rec := httptest.NewRecorder()
	newAdminRouter(resender).ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/admin/projects/not-a-uuid/resend-notice", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resender.AssertNotCalled(t, "ResendAccessNotice", mock.Anything, mock.Anything, mock.Anything)
}
