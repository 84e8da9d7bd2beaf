package httptransport_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	requesthandler "bloodlink/internal/bloodrequest/handler"
	requestservice "bloodlink/internal/bloodrequest/service"
	requeststore "bloodlink/internal/bloodrequest/store"
	donorhandler "bloodlink/internal/donor/handler"
	donorservice "bloodlink/internal/donor/service"
	donorstore "bloodlink/internal/donor/store"
	"bloodlink/internal/donorsearch"
	historystore "bloodlink/internal/history/store"
	jwttoken "bloodlink/internal/jwt_token"
	matchinghandler "bloodlink/internal/matching/handler"
	matchingservice "bloodlink/internal/matching/service"
	matchstore "bloodlink/internal/matching/store/match"
	notificationhandler "bloodlink/internal/notification/handler"
	notificationservice "bloodlink/internal/notification/service"
	notificationstore "bloodlink/internal/notification/store"
	httptransport "bloodlink/internal/transport/http"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/testutil"
)

type apiClient struct {
	t      *testing.T
	server http.Handler
	tokens *jwttoken.JWTService
}

func (c *apiClient) do(user id.UserID, method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if !user.IsNil() {
		token, err := c.tokens.GenerateAccessToken(user, time.Hour)
		require.NoError(c.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	c.server.ServeHTTP(rr, req)
	return rr
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	requests := requeststore.NewInMemory()
	donors := donorstore.NewInMemory()
	notifications := notificationservice.New(notificationstore.NewInMemory(), notificationservice.WithLogger(logger))
	matching := matchingservice.New(matchingservice.Stores{
		Matches:  matchstore.NewInMemory(),
		Requests: requests,
		Donors:   donors,
		History:  historystore.NewInMemory(),
	}, donorsearch.NewMemoryFinder(requests, donors),
		matchingservice.WithNotifier(notifications),
		matchingservice.WithLogger(logger),
	)

	tokens := jwttoken.NewJWTService("router-test-key", "bloodlink-test", "authenticated")
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:    logger,
		Validator: jwttoken.NewJWTServiceAdapter(tokens),
	},
		requesthandler.New(requestservice.New(requests, requestservice.WithLogger(logger)), logger),
		donorhandler.New(donorservice.New(donors, logger), logger),
		matchinghandler.New(matching, logger),
		notificationhandler.New(notifications, logger),
	)
	return &apiClient{t: t, server: router, tokens: tokens}
}

func TestDonationFlow(t *testing.T) {
	api := newAPI(t)
	requester := id.UserID(uuid.New())
	donor := id.UserID(uuid.New())
	var requestID, matchID string

	testutil.Given(t, "an unauthenticated caller", func(t *testing.T) {
		testutil.Then(t, "health is public", func(t *testing.T) {
			rr := api.do(id.UserID{}, http.MethodGet, "/health", nil)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		})
		testutil.Then(t, "the API requires a bearer token", func(t *testing.T) {
			rr := api.do(id.UserID{}, http.MethodGet, "/donors/me", nil)
			testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
		})
	})

	testutil.Given(t, "a registered O- donor and an AB+ request", func(t *testing.T) {
		rr := api.do(donor, http.MethodPut, "/donors/me", map[string]any{
			"name": "Dana", "blood_type": "O-", "city": "Springfield", "state": "IL",
		})
		require.Equal(t, http.StatusOK, rr.Code)

		rr = api.do(requester, http.MethodPost, "/requests", map[string]any{
			"requester_name": "Rita", "blood_type": "AB+", "units_needed": 1,
			"urgency": "critical", "hospital_name": "General",
			"hospital_city": "Springfield", "hospital_state": "IL",
		})
		require.Equal(t, http.StatusCreated, rr.Code)
		created := testutil.UnmarshalResponse[struct {
			ID string `json:"id"`
		}](t, rr)
		requestID = created.ID

		testutil.When(t, "someone else runs matching", func(t *testing.T) {
			rr := api.do(donor, http.MethodPost, "/requests/"+requestID+"/matches", nil)
			testutil.Then(t, "it is forbidden", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
			})
		})

		testutil.When(t, "the requester runs matching", func(t *testing.T) {
			rr := api.do(requester, http.MethodPost, "/requests/"+requestID+"/matches", map[string]any{"max_results": 5})
			require.Equal(t, http.StatusOK, rr.Code)
			result := testutil.UnmarshalResponse[struct {
				Matches []struct {
					ID      string `json:"id"`
					DonorID string `json:"donor_id"`
					Status  string `json:"status"`
				} `json:"matches"`
				TotalCount int `json:"total_count"`
			}](t, rr)

			testutil.Then(t, "the donor gets a pending match", func(t *testing.T) {
				require.Len(t, result.Matches, 1)
				assert.Equal(t, donor.String(), result.Matches[0].DonorID)
				assert.Equal(t, "pending", result.Matches[0].Status)
				assert.Equal(t, 1, result.TotalCount)
				matchID = result.Matches[0].ID
			})
			testutil.Then(t, "the donor is notified", func(t *testing.T) {
				rr := api.do(donor, http.MethodGet, "/notifications?unread=true", nil)
				require.Equal(t, http.StatusOK, rr.Code)
				testutil.AssertJSONContains(t, rr, "unread_count", float64(1))
			})
			testutil.Then(t, "the request is matching", func(t *testing.T) {
				rr := api.do(requester, http.MethodGet, "/requests/"+requestID, nil)
				testutil.AssertJSONContains(t, rr, "status", "matching")
			})
		})
	})

	testutil.Given(t, "the pending match", func(t *testing.T) {
		require.NotEmpty(t, matchID)

		testutil.When(t, "the requester tries to accept", func(t *testing.T) {
			rr := api.do(requester, http.MethodPost, "/matches/"+matchID+"/accept", nil)
			testutil.Then(t, "only the donor may respond", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
			})
		})

		testutil.When(t, "the donor accepts and completes", func(t *testing.T) {
			rr := api.do(donor, http.MethodPost, "/matches/"+matchID+"/accept", nil)
			testutil.AssertStatusOK(t, rr)
			testutil.AssertJSONContains(t, rr, "status", "accepted")

			rr = api.do(donor, http.MethodPost, "/matches/"+matchID+"/complete", map[string]any{"notes": "all good"})
			testutil.AssertStatusOK(t, rr)
			testutil.AssertJSONContains(t, rr, "status", "completed")

			testutil.Then(t, "the request is fulfilled", func(t *testing.T) {
				rr := api.do(requester, http.MethodGet, "/requests/"+requestID, nil)
				testutil.AssertJSONContains(t, rr, "status", "fulfilled")
			})
			testutil.Then(t, "the donation is in the donor history", func(t *testing.T) {
				rr := api.do(donor, http.MethodGet, "/donors/me/history", nil)
				require.Equal(t, http.StatusOK, rr.Code)
				history := testutil.UnmarshalResponse[struct {
					Donations []struct {
						MatchID   string `json:"match_id"`
						BloodType string `json:"blood_type"`
					} `json:"donations"`
				}](t, rr)
				require.Len(t, history.Donations, 1)
				assert.Equal(t, matchID, history.Donations[0].MatchID)
				assert.Equal(t, "O-", history.Donations[0].BloodType)
			})
			testutil.Then(t, "completing again is an invalid transition", func(t *testing.T) {
				rr := api.do(donor, http.MethodPost, "/matches/"+matchID+"/complete", nil)
				testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_transition")
			})
		})

		testutil.When(t, "the requester lists matches", func(t *testing.T) {
			rr := api.do(requester, http.MethodGet, "/requests/"+requestID+"/matches?status=completed", nil)
			require.Equal(t, http.StatusOK, rr.Code)
			list := testutil.UnmarshalResponse[struct {
				Matches []struct {
					Join  string `json:"join"`
					Donor struct {
						DonorName string `json:"donor_name"`
					} `json:"donor"`
				} `json:"matches"`
				Statistics struct {
					Total       int     `json:"total"`
					SuccessRate float64 `json:"success_rate"`
				} `json:"statistics"`
			}](t, rr)

			testutil.Then(t, "the view carries the donor join and statistics", func(t *testing.T) {
				require.Len(t, list.Matches, 1)
				assert.Equal(t, "Dana", list.Matches[0].Donor.DonorName)
				assert.Equal(t, 1, list.Statistics.Total)
				assert.InDelta(t, 1.0, list.Statistics.SuccessRate, 0.0001)
			})
		})
	})
}
