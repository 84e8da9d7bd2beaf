package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/notification/models"
	"bloodlink/internal/notification/service"
	"bloodlink/internal/notification/store"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/testutil"
)

func newRouter() (http.Handler, *service.Service) {
	svc := service.New(store.NewInMemory())
	r := chi.NewRouter()
	New(svc, nil).Register(r)
	return r, svc
}

func TestListNotifications(t *testing.T) {
	router, svc := newRouter()
	user := id.UserID(uuid.New())
	n, err := svc.Notify(context.Background(), user, models.Draft{Type: models.TypeMatchCreated, Title: "New match"})
	require.NoError(t, err)
	_, err = svc.Notify(context.Background(), id.UserID(uuid.New()), models.Draft{Type: models.TypeMatchCreated})
	require.NoError(t, err)

	req := testutil.WithUser(testutil.NewRequest(t, http.MethodGet, "/notifications?unread=true"), user)
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[struct {
		Notifications []models.Notification `json:"notifications"`
		UnreadCount   int                   `json:"unread_count"`
	}](t, rr)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, n.ID, resp.Notifications[0].ID)
	assert.Equal(t, 1, resp.UnreadCount)
}

func TestListRejectsBadUnreadFlag(t *testing.T) {
	router, _ := newRouter()
	req := testutil.WithUser(testutil.NewRequest(t, http.MethodGet, "/notifications?unread=maybe"), id.UserID(uuid.New()))
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}

func TestListRequiresAuthenticatedUser(t *testing.T) {
	router, _ := newRouter()
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/notifications"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestMarkRead(t *testing.T) {
	router, svc := newRouter()
	user := id.UserID(uuid.New())
	n, err := svc.Notify(context.Background(), user, models.Draft{Type: models.TypeMatchAccepted})
	require.NoError(t, err)

	t.Run("owner marks read", func(t *testing.T) {
		req := testutil.WithUser(testutil.NewRequest(t, http.MethodPost, "/notifications/"+n.ID.String()+"/read"), user)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})

	t.Run("other user gets not found", func(t *testing.T) {
		req := testutil.WithUser(testutil.NewRequest(t, http.MethodPost, "/notifications/"+n.ID.String()+"/read"), id.UserID(uuid.New()))
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("malformed id", func(t *testing.T) {
		req := testutil.WithUser(testutil.NewRequest(t, http.MethodPost, "/notifications/nope/read"), user)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}
