package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/handler"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/ibd-library/library-service/pkg/auth"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	service_mocks "github.com/ibd-library/library-service/library/internal/handler/mocks"
)

const (
	memberID    = int64(7)
	librarianID = int64(1)
)

type testEnv struct {
	svc    *service_mocks.MockLibraryService
	chat   *service_mocks.MockChatService
	tokens *auth.TokenManager
	e      *echo.Echo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	c := gomock.NewController(t)
	svc := service_mocks.NewMockLibraryService(c)
	chat := service_mocks.NewMockChatService(c)
	tokens := auth.NewTokenManager(auth.Config{Secret: "test-secret", TokenTTL: time.Hour, Issuer: "test"})
	log := zap.NewExample().Named("test")
	h := handler.New(svc, chat, tokens, auth.NewMemoryRevoker(), log)
	return &testEnv{svc: svc, chat: chat, tokens: tokens, e: h.NewRouter()}
}

func (env *testEnv) do(t *testing.T, method, target, body, role string, id int64) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, http.NoBody)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if role != "" {
		token, _, err := env.tokens.Issue(id, role)
		require.NoError(t, err)
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.e.ServeHTTP(w, r)
	return w
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/manage/health", "", "", 0)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"status":"healthy"}`, strings.Trim(w.Body.String(), "\n"))
}

func TestHandler_ListItems(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLibraryService)
	available := true

	tests := []struct {
		name         string
		query        string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name:  "ok",
			query: "?search=dune&available=true&limit=5",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					ListItems(gomock.Any(), model.ItemFilter{Search: "dune", Available: &available, Limit: 5}).
					Return([]model.Item{{ID: 1, Title: "Dune", Author: "Frank Herbert", StockQuantity: 2}}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `[{"id":1,"title":"Dune","author":"Frank Herbert","category":"","isbn":null,"description":"","cover_emoji":"","stock_quantity":2,"created_at":"0001-01-01T00:00:00Z","updated_at":"0001-01-01T00:00:00Z"}]`,
		},
		{
			name:  "empty",
			query: "",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListItems(gomock.Any(), model.ItemFilter{}).Return(nil, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `[]`,
		},
		{
			name:         "err. bad available",
			query:        "?available=maybe",
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"invalid available"}`,
		},
		{
			name:         "err. bad limit",
			query:        "?limit=-1",
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"invalid limit"}`,
		},
		{
			name:  "err. internal",
			query: "",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListItems(gomock.Any(), model.ItemFilter{}).Return(nil, errors.New("db internal"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"message":"db internal"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			tt.mockBehavior(env.svc)

			w := env.do(t, http.MethodGet, "/api/v1/items"+tt.query, "", "", 0)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_CreateItemRequiresLibrarian(t *testing.T) {
	t.Parallel()
	body := `{"title":"Dune","author":"Frank Herbert","stock_quantity":2}`

	tests := []struct {
		name         string
		role         string
		mockBehavior func(r *service_mocks.MockLibraryService)
		expectedCode int
	}{
		{
			name:         "anonymous",
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "member",
			role:         string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusForbidden,
		},
		{
			name: "librarian",
			role: string(model.RoleLibrarian),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateItem(gomock.Any(), model.CreateItemRequest{Title: "Dune", Author: "Frank Herbert", StockQuantity: 2}).
					Return(model.Item{ID: 3, Title: "Dune"}, nil)
			},
			expectedCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			tt.mockBehavior(env.svc)

			w := env.do(t, http.MethodPost, "/api/v1/items", body, tt.role, librarianID)
			require.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestHandler_Borrow(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLibraryService)

	tests := []struct {
		name         string
		body         string
		role         string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "ok",
			body: fmt.Sprintf(`{"user_id":%d,"book_id":3}`, memberID),
			role: string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().BorrowItem(gomock.Any(), memberID, int64(3)).
					Return(model.LoanResult{Success: true, Message: "Lent 'Dune' to Kim. Due date: 2024-03-15"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"success":true,"message":"Lent 'Dune' to Kim. Due date: 2024-03-15"}`,
		},
		{
			name: "policy rejection",
			body: fmt.Sprintf(`{"user_id":%d,"book_id":3}`, memberID),
			role: string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().BorrowItem(gomock.Any(), memberID, int64(3)).
					Return(model.LoanResult{Success: false, Message: "'Dune' is currently out of stock"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"success":false,"message":"'Dune' is currently out of stock"}`,
		},
		{
			name: "librarian for member",
			body: fmt.Sprintf(`{"user_id":%d,"book_id":3}`, memberID),
			role: string(model.RoleLibrarian),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().BorrowItem(gomock.Any(), memberID, int64(3)).
					Return(model.LoanResult{Success: true, Message: "ok"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"success":true,"message":"ok"}`,
		},
		{
			name:         "err. other member",
			body:         `{"user_id":99,"book_id":3}`,
			role:         string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusForbidden,
			expectedBody: `{"message":"forbidden"}`,
		},
		{
			name:         "err. no token",
			body:         fmt.Sprintf(`{"user_id":%d,"book_id":3}`, memberID),
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"message":"No Authorization Header"}`,
		},
		{
			name:         "err. bad json",
			body:         `{"user_id":`,
			role:         string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"invalid json body"}`,
		},
		{
			name: "err. member not found",
			body: fmt.Sprintf(`{"user_id":%d,"book_id":3}`, memberID),
			role: string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().BorrowItem(gomock.Any(), memberID, int64(3)).
					Return(model.LoanResult{}, errors.Wrap(errs.ErrNotFound, "member"))
			},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"message":"member: not found"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			tt.mockBehavior(env.svc)

			w := env.do(t, http.MethodPost, "/api/v1/loans/borrow", tt.body, tt.role, memberID)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Return(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLibraryService)

	tests := []struct {
		name         string
		role         string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "owner",
			role: string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().GetLoan(gomock.Any(), int64(5)).Return(model.Loan{ID: 5, UserID: memberID}, nil)
				r.EXPECT().ReturnItem(gomock.Any(), int64(5)).Return(model.LoanResult{Success: true, Message: "'Dune' has been returned"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"success":true,"message":"'Dune' has been returned"}`,
		},
		{
			name: "already returned",
			role: string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().GetLoan(gomock.Any(), int64(5)).Return(model.Loan{ID: 5, UserID: memberID}, nil)
				r.EXPECT().ReturnItem(gomock.Any(), int64(5)).Return(model.LoanResult{Message: "This book has already been returned"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"success":false,"message":"This book has already been returned"}`,
		},
		{
			name: "librarian skips ownership",
			role: string(model.RoleLibrarian),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ReturnItem(gomock.Any(), int64(5)).Return(model.LoanResult{Success: true, Message: "ok"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"success":true,"message":"ok"}`,
		},
		{
			name: "err. not owner",
			role: string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().GetLoan(gomock.Any(), int64(5)).Return(model.Loan{ID: 5, UserID: 42}, nil)
			},
			expectedCode: http.StatusForbidden,
			expectedBody: `{"message":"forbidden"}`,
		},
		{
			name: "err. not found",
			role: string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().GetLoan(gomock.Any(), int64(5)).Return(model.Loan{}, errs.ErrNotFound)
			},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"message":"not found"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			tt.mockBehavior(env.svc)

			w := env.do(t, http.MethodPost, "/api/v1/loans/5/return", "", tt.role, memberID)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_ListLoans(t *testing.T) {
	t.Parallel()
	self := memberID
	other := int64(42)

	tests := []struct {
		name         string
		query        string
		role         string
		mockBehavior func(r *service_mocks.MockLibraryService)
		expectedCode int
	}{
		{
			name: "member sees own loans",
			role: string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListLoans(gomock.Any(), model.LoanFilter{UserID: &self}).Return(nil, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:  "overdue filter",
			query: "?status=overdue",
			role:  string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListLoans(gomock.Any(), model.LoanFilter{UserID: &self, Status: model.LoanStatusOverdue}).Return(nil, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:  "librarian filters by member",
			query: "?user_id=42&limit=10",
			role:  string(model.RoleLibrarian),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListLoans(gomock.Any(), model.LoanFilter{UserID: &other, Limit: 10}).Return(nil, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "err. member asks for other member",
			query:        "?user_id=42",
			role:         string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "err. bad status",
			query:        "?status=LOST",
			role:         string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			tt.mockBehavior(env.svc)

			w := env.do(t, http.MethodGet, "/api/v1/loans"+tt.query, "", tt.role, memberID)
			require.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestHandler_Login(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		body         string
		mockBehavior func(r *service_mocks.MockLibraryService)
		expectedCode int
		expectedBody string
	}{
		{
			name: "ok",
			body: `{"email":"kim@example.com","password":"secret"}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().Login(gomock.Any(), model.LoginRequest{Email: "kim@example.com", Password: "secret"}).
					Return(model.LoginResponse{Success: true, Message: "Welcome, Kim", Token: "t"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"success":true,"message":"Welcome, Kim","token":"t"}`,
		},
		{
			name: "err. wrong password",
			body: `{"email":"kim@example.com","password":"nope"}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().Login(gomock.Any(), gomock.Any()).Return(model.LoginResponse{}, errs.ErrInvalidCredentials)
			},
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"message":"invalid email or password"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			tt.mockBehavior(env.svc)

			w := env.do(t, http.MethodPost, "/api/v1/users/login", tt.body, "", 0)
			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Logout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.svc.EXPECT().Logout(gomock.Any(), gomock.Any()).Return(nil)

	w := env.do(t, http.MethodPost, "/api/v1/users/logout", "", string(model.RoleMember), memberID)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"message":"Logged out","success":true}`, strings.Trim(w.Body.String(), "\n"))
}

func TestHandler_SetConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		role         string
		mockBehavior func(r *service_mocks.MockLibraryService)
		expectedCode int
	}{
		{
			name: "librarian",
			role: string(model.RoleLibrarian),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().SetPolicyValue(gomock.Any(), model.RoleLibrarian, model.ConfigMaxLoanLimit, "2").
					Return(model.PolicyConfig{Key: model.ConfigMaxLoanLimit, Value: "2"}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "err. member",
			role:         string(model.RoleMember),
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusForbidden,
		},
		{
			name: "err. unknown key",
			role: string(model.RoleLibrarian),
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().SetPolicyValue(gomock.Any(), model.RoleLibrarian, model.ConfigMaxLoanLimit, "2").
					Return(model.PolicyConfig{}, errs.ErrNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			tt.mockBehavior(env.svc)

			w := env.do(t, http.MethodPut, "/api/v1/admin/config/"+model.ConfigMaxLoanLimit, `{"value":"2"}`, tt.role, librarianID)
			require.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestHandler_Chat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		role     string
		memberID int64
	}{
		{name: "anonymous", memberID: 0},
		{name: "member", role: string(model.RoleMember), memberID: memberID},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			env.chat.EXPECT().Chat(gomock.Any(), tt.memberID, "opening hours?").
				Return(model.ChatResponse{Response: "Weekdays 09:00-21:00", Sources: []string{"config"}}, nil)

			w := env.do(t, http.MethodPost, "/api/v1/ai/chat", `{"message":"opening hours?"}`, tt.role, memberID)
			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, `{"response":"Weekdays 09:00-21:00","sources":["config"]}`, strings.Trim(w.Body.String(), "\n"))
		})
	}

	t.Run("err. empty message", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		w := env.do(t, http.MethodPost, "/api/v1/ai/chat", `{"message":""}`, "", 0)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("err. bad token", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		r := httptest.NewRequest(http.MethodPost, "/api/v1/ai/chat", strings.NewReader(`{"message":"hi"}`))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		r.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
		w := httptest.NewRecorder()
		env.e.ServeHTTP(w, r)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
