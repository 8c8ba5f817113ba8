//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vantag/assistant-gateway/internal/api"
	"github.com/vantag/assistant-gateway/internal/assistant"
	"github.com/vantag/assistant-gateway/internal/auth"
	"github.com/vantag/assistant-gateway/internal/config"
	"github.com/vantag/assistant-gateway/internal/llm"
	"github.com/vantag/assistant-gateway/internal/promo"
	"github.com/vantag/assistant-gateway/internal/quota"
	"github.com/vantag/assistant-gateway/internal/rates"
)

const adminSecret = "integration-test-secret-32-chars!!"

type TestEnv struct {
	Pool         *pgxpool.Pool
	RedisClient  *redis.Client
	Server       *httptest.Server
	TokenManager *auth.TokenManager
	Model        *FakeModel
}

// FakeModel is an OpenAI-compatible upstream whose next completion is
// scripted per test.
type FakeModel struct {
	mu   sync.Mutex
	next json.RawMessage
}

// Respond sets the message object of the next completions. It stays in
// effect until replaced.
func (f *FakeModel) Respond(message string) {
	f.set(json.RawMessage(fmt.Sprintf(`{"role":"assistant","content":%q}`, message)))
}

// RespondWithToolCall makes the model request one tool invocation.
func (f *FakeModel) RespondWithToolCall(id, name, argsJSON string) {
	f.set(json.RawMessage(fmt.Sprintf(
		`{"role":"assistant","tool_calls":[{"id":%q,"type":"function","function":{"name":%q,"arguments":%q}}]}`,
		id, name, argsJSON)))
}

func (f *FakeModel) set(msg json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = msg
}

func (f *FakeModel) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	msg := f.next
	f.mu.Unlock()
	if msg == nil {
		msg = json.RawMessage(`{"role":"assistant","content":"Merhaba!"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id":"cmpl-test","choices":[{"index":0,"message":%s,"finish_reason":"stop"}]}`, msg)
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "vantag_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/vantag_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	m, err := migrate.New(fmt.Sprintf("file://%s", getMigrationsPath()), dsn)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Fake model upstream
	model := &FakeModel{}
	modelServer := httptest.NewServer(http.HandlerFunc(model.handler))
	t.Cleanup(modelServer.Close)

	modelClient := llm.NewHTTPClient(config.LLMConfig{
		BaseURL:   modelServer.URL,
		APIKey:    "test-key",
		Model:     "gpt-4o-mini",
		Timeout:   5 * time.Second,
		MaxTokens: 256,
	})

	usageRepo := quota.NewRepository(pool)
	chatSvc := assistant.NewService(usageRepo, modelClient, nil)
	chatHandler := assistant.NewHandler(chatSvc)
	quotaHandler := quota.NewHandler(usageRepo, nil)

	ratesStore := rates.NewStore(redisClient)
	ratesHandler := rates.NewHandler(rates.NewService(rates.NewFetcher(), ratesStore), ratesStore)

	promoHandler := promo.NewHandler(promo.NewRepository(pool), nil)
	tokenManager := auth.NewTokenManager(adminSecret)

	router := api.NewRouter(pool, redisClient, api.RouterConfig{}, api.HandlerSet{
		Chat:        chatHandler.Chat,
		QuotaStatus: quotaHandler.Status,

		GetRates:     ratesHandler.Get,
		RefreshRates: ratesHandler.Refresh,

		GrantPromo: promoHandler.Grant,
		AddCredits: quotaHandler.AddCredits,

		AdminMiddleware: auth.AdminMiddleware(tokenManager),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	testEnv = &TestEnv{
		Pool:         pool,
		RedisClient:  redisClient,
		Server:       server,
		TokenManager: tokenManager,
		Model:        model,
	}
	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

func AdminToken(t *testing.T, env *TestEnv) string {
	t.Helper()
	token, err := env.TokenManager.Generate("ops", time.Hour)
	if err != nil {
		t.Fatalf("generating admin token: %v", err)
	}
	return token
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
