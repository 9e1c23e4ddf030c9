package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prieelo/prieelo/models"
	"github.com/prieelo/prieelo/util/cliutil"
)

type testServer struct {
	s    *Server
	db   *gorm.DB
	host string
	// does not follow redirects so the image endpoint can be asserted on.
	client *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := cliutil.SetupDatabase("sqlite://:memory:", 40)
	require.NoError(t, err)

	s, err := NewServer(db, nil, nil, []byte("test-signing-key"))
	require.NoError(t, err)

	li, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = s.RunAPIWithListener(li)
	}()

	// wait for echo to start accepting
	host := "http://" + li.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(host + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	})

	return &testServer{
		s:    s,
		db:   db,
		host: host,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) (int, map[string]json.RawMessage) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, ts.host+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]json.RawMessage{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp.StatusCode, out
}

func field[T any](t *testing.T, body map[string]json.RawMessage, key string) T {
	t.Helper()
	var v T
	raw, ok := body[key]
	require.True(t, ok, "missing field %q in %v", key, body)
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// signup creates an account over the API and returns its id and token.
func (ts *testServer) signup(t *testing.T, username string) (uint, string) {
	t.Helper()
	code, body := ts.request(t, http.MethodPost, "/signup", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter22hunter22",
	})
	require.Equal(t, http.StatusCreated, code)
	account := field[accountView](t, body, "account")
	return account.ID, field[string](t, body, "accessJwt")
}

// approve flips an account straight to approved in the database.
func (ts *testServer) approve(t *testing.T, accountID uint) {
	t.Helper()
	require.NoError(t, ts.db.Model(&models.Account{}).Where("id = ?", accountID).
		Updates(map[string]any{"status": models.StatusApproved, "is_approved": true}).Error)
}

// admin creates an approved admin over the API.
func (ts *testServer) admin(t *testing.T, username string) (uint, string) {
	t.Helper()
	id, tok := ts.signup(t, username)
	ts.approve(t, id)
	require.NoError(t, ts.db.Model(&models.Account{}).Where("id = ?", id).
		Update("is_admin", true).Error)
	return id, tok
}

func TestSignupAndLogin(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.request(t, http.MethodPost, "/signup", "", map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "hunter22hunter22",
	})
	require.Equal(t, http.StatusCreated, code)
	account := field[accountView](t, body, "account")
	require.Equal(t, models.StatusPending, account.Status)
	require.False(t, account.IsApproved)
	require.NotEmpty(t, field[string](t, body, "accessJwt"))

	// same username again
	code, body = ts.request(t, http.MethodPost, "/signup", "", map[string]any{
		"username": "alice",
		"email":    "alice2@example.com",
		"password": "hunter22hunter22",
	})
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "Conflict", field[string](t, body, "error"))

	// login by username and by email
	for _, identifier := range []string{"alice", "alice@example.com"} {
		code, body = ts.request(t, http.MethodPost, "/login", "", map[string]any{
			"identifier": identifier,
			"password":   "hunter22hunter22",
		})
		require.Equal(t, http.StatusOK, code)
		require.NotEmpty(t, field[string](t, body, "accessJwt"))
	}

	code, body = ts.request(t, http.MethodPost, "/login", "", map[string]any{
		"identifier": "alice",
		"password":   "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "InvalidCredentials", field[string](t, body, "error"))

	// weak signup payloads are rejected before touching the database
	code, _ = ts.request(t, http.MethodPost, "/signup", "", map[string]any{
		"username": "bb",
		"email":    "not-an-email",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, code)
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.request(t, http.MethodGet, "/status", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "AuthRequired", field[string](t, body, "error"))

	code, _ = ts.request(t, http.MethodGet, "/status", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	// anonymous reads are fine
	code, _ = ts.request(t, http.MethodGet, "/feed", "", nil)
	require.Equal(t, http.StatusOK, code)

	_, tok := ts.signup(t, "bob")
	code, body = ts.request(t, http.MethodGet, "/status", tok, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, models.StatusPending, field[models.ApprovalStatus](t, body, "status"))
}

func TestWriteGating(t *testing.T) {
	ts := newTestServer(t)

	id, tok := ts.signup(t, "carol")

	code, body := ts.request(t, http.MethodPost, "/projects", tok, map[string]any{
		"title": "pallet bookshelf",
	})
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "AccountPending", field[string](t, body, "error"))

	_, adminTok := ts.admin(t, "root")
	code, _ = ts.request(t, http.MethodPost, fmt.Sprintf("/admin/accounts/%d/status", id), adminTok, map[string]any{
		"status": "APPROVED",
		"reason": "looks legit",
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.request(t, http.MethodPost, "/projects", tok, map[string]any{
		"title": "pallet bookshelf",
	})
	require.Equal(t, http.StatusCreated, code)

	// suspension cuts writes off again
	code, _ = ts.request(t, http.MethodPost, fmt.Sprintf("/admin/accounts/%d/status", id), adminTok, map[string]any{
		"status": "SUSPENDED",
		"reason": "spam",
	})
	require.Equal(t, http.StatusOK, code)

	code, body = ts.request(t, http.MethodPost, "/projects", tok, map[string]any{
		"title": "another one",
	})
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "AccountSuspended", field[string](t, body, "error"))
}

func TestSuspendedOwnerCannotMutateOwnContent(t *testing.T) {
	ts := newTestServer(t)

	id, tok := ts.signup(t, "oscar")
	ts.approve(t, id)

	code, body := ts.request(t, http.MethodPost, "/projects", tok, map[string]any{
		"title": "door headboard",
	})
	require.Equal(t, http.StatusCreated, code)
	project := field[models.Project](t, body, "project")

	code, body = ts.request(t, http.MethodPost, "/posts", tok, map[string]any{
		"projectId": project.ID,
		"phaseType": "material",
	})
	require.Equal(t, http.StatusCreated, code)
	post := field[models.PhasePost](t, body, "post")

	_, adminTok := ts.admin(t, "root")
	code, _ = ts.request(t, http.MethodPost, fmt.Sprintf("/admin/accounts/%d/status", id), adminTok, map[string]any{
		"status": "SUSPENDED",
		"reason": "spam",
	})
	require.Equal(t, http.StatusOK, code)

	// ownership no longer suffices: every mutation of existing content is
	// refused too.
	code, body = ts.request(t, http.MethodPut, fmt.Sprintf("/projects/%d", project.ID), tok, map[string]any{
		"public": false,
	})
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "AccountSuspended", field[string](t, body, "error"))

	code, body = ts.request(t, http.MethodPut, fmt.Sprintf("/posts/%d", post.ID), tok, map[string]any{
		"title": "sneaky edit",
	})
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "AccountSuspended", field[string](t, body, "error"))

	code, body = ts.request(t, http.MethodDelete, fmt.Sprintf("/posts/%d", post.ID), tok, nil)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "AccountSuspended", field[string](t, body, "error"))

	// nothing changed underneath
	var stored models.Project
	require.NoError(t, ts.db.First(&stored, "id = ?", project.ID).Error)
	require.True(t, stored.Public)
	var posts int64
	require.NoError(t, ts.db.Model(&models.PhasePost{}).Where("project_id = ?", project.ID).Count(&posts).Error)
	require.EqualValues(t, 1, posts)
}

func TestProjectDetailFiltersPosts(t *testing.T) {
	ts := newTestServer(t)

	ownerID, ownerTok := ts.signup(t, "peggy")
	ts.approve(t, ownerID)
	otherID, otherTok := ts.signup(t, "quinn")
	ts.approve(t, otherID)

	code, body := ts.request(t, http.MethodPost, "/projects", ownerTok, map[string]any{
		"title": "ladder shelf",
	})
	require.Equal(t, http.StatusCreated, code)
	project := field[models.Project](t, body, "project")

	code, _ = ts.request(t, http.MethodPost, "/posts", ownerTok, map[string]any{
		"projectId": project.ID,
		"phaseType": "material",
	})
	require.Equal(t, http.StatusCreated, code)

	code, _ = ts.request(t, http.MethodPost, "/posts", ownerTok, map[string]any{
		"projectId": project.ID,
		"phaseType": "process",
		"public":    false,
	})
	require.Equal(t, http.StatusCreated, code)

	code, body = ts.request(t, http.MethodGet, fmt.Sprintf("/projects/%d", project.ID), otherTok, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, field[[]models.PhasePost](t, body, "posts"), 1)

	code, body = ts.request(t, http.MethodGet, fmt.Sprintf("/projects/%d", project.ID), ownerTok, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, field[[]models.PhasePost](t, body, "posts"), 2)
}

func TestProfileUpdateAndChangePassword(t *testing.T) {
	ts := newTestServer(t)

	_, tok := ts.signup(t, "rita")

	code, body := ts.request(t, http.MethodPut, "/profile", tok, map[string]any{
		"firstName": "Rita",
		"bio":       "turning pallets into furniture",
	})
	require.Equal(t, http.StatusOK, code)
	account := field[accountView](t, body, "account")
	require.Equal(t, "Rita", account.FirstName)

	var stored models.Account
	require.NoError(t, ts.db.First(&stored, "username = ?", "rita").Error)
	require.Equal(t, "turning pallets into furniture", stored.Bio)

	code, body = ts.request(t, http.MethodPost, "/change-password", tok, map[string]any{
		"currentPassword": "not the password",
		"newPassword":     "an-even-longer-one",
	})
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "InvalidCredentials", field[string](t, body, "error"))

	code, _ = ts.request(t, http.MethodPost, "/change-password", tok, map[string]any{
		"currentPassword": "hunter22hunter22",
		"newPassword":     "an-even-longer-one",
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.request(t, http.MethodPost, "/login", "", map[string]any{
		"identifier": "rita",
		"password":   "hunter22hunter22",
	})
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = ts.request(t, http.MethodPost, "/login", "", map[string]any{
		"identifier": "rita",
		"password":   "an-even-longer-one",
	})
	require.Equal(t, http.StatusOK, code)
}

func TestPasswordResetFlow(t *testing.T) {
	ts := newTestServer(t)

	ts.signup(t, "sybil")

	// unknown addresses get the same answer as known ones
	code, _ := ts.request(t, http.MethodPost, "/forgot-password", "", map[string]any{
		"email": "nobody@example.com",
	})
	require.Equal(t, http.StatusOK, code)
	var total int64
	require.NoError(t, ts.db.Model(&models.PasswordReset{}).Count(&total).Error)
	require.EqualValues(t, 0, total)

	code, _ = ts.request(t, http.MethodPost, "/forgot-password", "", map[string]any{
		"email": "sybil@example.com",
	})
	require.Equal(t, http.StatusOK, code)

	var reset models.PasswordReset
	require.NoError(t, ts.db.First(&reset).Error)

	code, body := ts.request(t, http.MethodPost, "/reset-password", "", map[string]any{
		"token":       "not-a-real-token",
		"newPassword": "whatever-it-takes",
	})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "InvalidResetToken", field[string](t, body, "error"))

	code, _ = ts.request(t, http.MethodPost, "/reset-password", "", map[string]any{
		"token":       reset.Token,
		"newPassword": "whatever-it-takes",
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.request(t, http.MethodPost, "/login", "", map[string]any{
		"identifier": "sybil",
		"password":   "whatever-it-takes",
	})
	require.Equal(t, http.StatusOK, code)

	// tokens are single use
	code, body = ts.request(t, http.MethodPost, "/reset-password", "", map[string]any{
		"token":       reset.Token,
		"newPassword": "third-password-now",
	})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "InvalidResetToken", field[string](t, body, "error"))

	// expired tokens are refused too
	require.NoError(t, ts.db.Model(&models.PasswordReset{}).Where("id = ?", reset.ID).
		Updates(map[string]any{"used_at": nil, "expires_at": time.Now().Add(-time.Minute)}).Error)
	code, _ = ts.request(t, http.MethodPost, "/reset-password", "", map[string]any{
		"token":       reset.Token,
		"newPassword": "third-password-now",
	})
	require.Equal(t, http.StatusBadRequest, code)
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	ts := newTestServer(t)

	id, tok := ts.signup(t, "dave")
	ts.approve(t, id)

	for _, path := range []string{"/admin/accounts", "/admin/stats"} {
		code, body := ts.request(t, http.MethodGet, path, tok, nil)
		require.Equal(t, http.StatusForbidden, code)
		require.Equal(t, "NotAdmin", field[string](t, body, "error"))
	}

	_, adminTok := ts.admin(t, "root")
	code, body := ts.request(t, http.MethodGet, "/admin/accounts", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	accounts := field[[]accountView](t, body, "accounts")
	require.Len(t, accounts, 2)
	// newest first within a status band, and emails are exposed here
	require.Equal(t, "dave@example.com", accounts[1].Email)

	code, body = ts.request(t, http.MethodGet, "/admin/stats", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	stats := field[map[string]int64](t, body, "stats")
	require.EqualValues(t, 2, stats["accounts_APPROVED"])
}

func TestPostLifecycle(t *testing.T) {
	ts := newTestServer(t)

	id, tok := ts.signup(t, "erin")
	ts.approve(t, id)

	code, body := ts.request(t, http.MethodPost, "/projects", tok, map[string]any{
		"title": "bottle chandelier",
	})
	require.Equal(t, http.StatusCreated, code)
	project := field[models.Project](t, body, "project")

	newPost := func(phase string) (int, map[string]json.RawMessage) {
		return ts.request(t, http.MethodPost, "/posts", tok, map[string]any{
			"projectId": project.ID,
			"phaseType": phase,
			"title":     phase + " update",
		})
	}

	code, body = newPost("masterpiece")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "MissingPrerequisite", field[string](t, body, "error"))

	code, _ = newPost("material")
	require.Equal(t, http.StatusCreated, code)

	code, body = newPost("masterpiece")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "MissingPrerequisite", field[string](t, body, "error"))

	code, _ = newPost("process")
	require.Equal(t, http.StatusCreated, code)

	code, body = newPost("masterpiece")
	require.Equal(t, http.StatusCreated, code)
	post := field[models.PhasePost](t, body, "post")

	code, body = ts.request(t, http.MethodGet, fmt.Sprintf("/projects/%d", project.ID), tok, nil)
	require.Equal(t, http.StatusOK, code)
	detail := field[models.Project](t, body, "project")
	require.Equal(t, models.PhaseMasterpiece, detail.CurrentPhase)

	// edit then delete the masterpiece post; the phase does not regress
	code, body = ts.request(t, http.MethodPut, fmt.Sprintf("/posts/%d", post.ID), tok, map[string]any{
		"title": "final reveal",
	})
	require.Equal(t, http.StatusOK, code)
	updated := field[models.PhasePost](t, body, "post")
	require.Equal(t, "final reveal", updated.Title)

	code, _ = ts.request(t, http.MethodDelete, fmt.Sprintf("/posts/%d", post.ID), tok, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = ts.request(t, http.MethodGet, fmt.Sprintf("/projects/%d", project.ID), tok, nil)
	require.Equal(t, http.StatusOK, code)
	detail = field[models.Project](t, body, "project")
	require.Equal(t, models.PhaseMasterpiece, detail.CurrentPhase)
}

func TestProjectOwnership(t *testing.T) {
	ts := newTestServer(t)

	ownerID, ownerTok := ts.signup(t, "frank")
	ts.approve(t, ownerID)
	otherID, otherTok := ts.signup(t, "grace")
	ts.approve(t, otherID)

	code, body := ts.request(t, http.MethodPost, "/projects", ownerTok, map[string]any{
		"title":  "secret build",
		"public": false,
	})
	require.Equal(t, http.StatusCreated, code)
	project := field[models.Project](t, body, "project")

	// private projects are invisible to others, visible to the owner
	code, body = ts.request(t, http.MethodGet, fmt.Sprintf("/projects/%d", project.ID), otherTok, nil)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "Forbidden", field[string](t, body, "error"))

	code, _ = ts.request(t, http.MethodGet, fmt.Sprintf("/projects/%d", project.ID), ownerTok, nil)
	require.Equal(t, http.StatusOK, code)

	// only the owner can update or post
	code, body = ts.request(t, http.MethodPut, fmt.Sprintf("/projects/%d", project.ID), otherTok, map[string]any{
		"public": true,
	})
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "NotOwner", field[string](t, body, "error"))

	code, body = ts.request(t, http.MethodPost, "/posts", otherTok, map[string]any{
		"projectId": project.ID,
		"phaseType": "material",
	})
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "NotOwner", field[string](t, body, "error"))

	code, _ = ts.request(t, http.MethodPut, fmt.Sprintf("/projects/%d", project.ID), ownerTok, map[string]any{
		"public": true,
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.request(t, http.MethodGet, fmt.Sprintf("/projects/%d", project.ID), otherTok, nil)
	require.Equal(t, http.StatusOK, code)
}

func TestLikesAndComments(t *testing.T) {
	ts := newTestServer(t)

	ownerID, ownerTok := ts.signup(t, "heidi")
	ts.approve(t, ownerID)
	likerID, likerTok := ts.signup(t, "ivan")
	ts.approve(t, likerID)

	code, body := ts.request(t, http.MethodPost, "/projects", ownerTok, map[string]any{
		"title": "jar lanterns",
	})
	require.Equal(t, http.StatusCreated, code)
	project := field[models.Project](t, body, "project")

	toggle := func() map[string]json.RawMessage {
		code, body := ts.request(t, http.MethodPost, "/likes", likerTok, map[string]any{
			"kind":     "project",
			"targetId": project.ID,
		})
		require.Equal(t, http.StatusOK, code)
		return body
	}

	body = toggle()
	require.True(t, field[bool](t, body, "liked"))
	require.EqualValues(t, 1, field[int64](t, body, "count"))

	body = toggle()
	require.False(t, field[bool](t, body, "liked"))
	require.EqualValues(t, 0, field[int64](t, body, "count"))

	code, _ = ts.request(t, http.MethodPost, "/comments", likerTok, map[string]any{
		"kind":     "project",
		"targetId": project.ID,
		"content":  "love the handles",
	})
	require.Equal(t, http.StatusCreated, code)

	// blank comments never make it past validation
	code, _ = ts.request(t, http.MethodPost, "/comments", likerTok, map[string]any{
		"kind":     "project",
		"targetId": project.ID,
		"content":  "",
	})
	require.Equal(t, http.StatusBadRequest, code)

	code, body = ts.request(t, http.MethodPost, "/likes", likerTok, map[string]any{
		"kind":     "project",
		"targetId": uint(9999),
	})
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "NotFound", field[string](t, body, "error"))
}

func TestFeedEndpoint(t *testing.T) {
	ts := newTestServer(t)

	id, tok := ts.signup(t, "judy")
	ts.approve(t, id)

	code, body := ts.request(t, http.MethodPost, "/projects", tok, map[string]any{
		"title": "crate seating",
	})
	require.Equal(t, http.StatusCreated, code)
	project := field[models.Project](t, body, "project")

	code, _ = ts.request(t, http.MethodPost, "/posts", tok, map[string]any{
		"projectId": project.ID,
		"phaseType": "material",
		"title":     "crates",
	})
	require.Equal(t, http.StatusCreated, code)

	type feedItem struct {
		Post models.PhasePost `json:"post"`
	}

	for _, path := range []string{
		"/feed",
		"/feed?mode=all-projects",
		"/feed?mode=all-posts",
		"/feed?mode=all-posts&phase=material",
		fmt.Sprintf("/feed?project=%d", project.ID),
		fmt.Sprintf("/feed?project=%d&order=asc", project.ID),
	} {
		code, body = ts.request(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, code, "path %s", path)
		items := field[[]feedItem](t, body, "items")
		require.Len(t, items, 1, "path %s", path)
	}

	code, _ = ts.request(t, http.MethodGet, "/feed?mode=all-posts&phase=masterpiece", "", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.request(t, http.MethodGet, "/feed?mode=bogus", "", nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.request(t, http.MethodGet, "/feed?phase=bogus", "", nil)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestApplications(t *testing.T) {
	ts := newTestServer(t)

	_, tok := ts.signup(t, "kim")

	code, _ := ts.request(t, http.MethodPost, "/applications", tok, map[string]any{
		"projectDescription": "turning skateboards into shelves",
		"experience":         "five years of woodworking",
		"motivation":         "keep decks out of landfill",
	})
	require.Equal(t, http.StatusCreated, code)

	var apps []models.RemakerApplication
	require.NoError(t, ts.db.Find(&apps).Error)
	require.Len(t, apps, 1)
	require.Equal(t, "five years of woodworking", apps[0].Experience)

	code, _ = ts.request(t, http.MethodPost, "/applications", tok, map[string]any{
		"projectDescription": "missing the rest",
	})
	require.Equal(t, http.StatusBadRequest, code)
}

func TestUploadAndResolveImage(t *testing.T) {
	ts := newTestServer(t)

	id, tok := ts.signup(t, "mallory")
	ts.approve(t, id)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "before.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not really a jpeg"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, ts.host+"/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Ref string `json:"ref"`
		URL string `json:"url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, strings.HasSuffix(out.Ref, ".jpg"))

	code, _ := ts.request(t, http.MethodGet, "/images/"+out.Ref, "", nil)
	require.Equal(t, http.StatusFound, code)

	code, _ = ts.request(t, http.MethodGet, "/images/nope.jpg", "", nil)
	require.Equal(t, http.StatusNotFound, code)
}
