package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/article-insights/internal/migrations"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

const postgresPort = nat.Port("5432/tcp")

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateAccount создает тестовую учётную запись пробного уровня
func (f *TestDataFactory) CreateAccount(t *testing.T, email string, used, limit int64) string {
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO accounts (email, tier, tokens_used, token_limit)
		VALUES ($1, 'trial', $2, $3) RETURNING id`, email, used, limit).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateArticle создает тестовую запись истории
func (f *TestDataFactory) CreateArticle(t *testing.T, accountID, title string, createdAt time.Time) string {
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO articles
		(account_id, title, original_content, translated_content, commentary, input_kind, style, tokens_used, created_at)
		VALUES ($1, $2, 'original', 'translated', 'commentary', 'text', 'warmBookish', 10, $3) RETURNING id`,
		accountID, title, createdAt).Scan(&id)
	require.NoError(t, err)
	return id
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// VerifyTokensUsed проверяет расход токенов учётной записи
func (v *TestVerification) VerifyTokensUsed(t *testing.T, accountID string, expected int64) {
	var used int64
	err := v.storage.DB.QueryRow("SELECT tokens_used FROM accounts WHERE id = $1", accountID).Scan(&used)
	require.NoError(t, err)
	require.Equal(t, expected, used)
}

// VerifyArticleExists проверяет существование записи истории
func (v *TestVerification) VerifyArticleExists(t *testing.T, articleID string, expected bool) {
	var count int
	err := v.storage.DB.QueryRow("SELECT COUNT(*) FROM articles WHERE id = $1", articleID).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, expected, count == 1)
}

func testAccount() models.NewAccount {
	return models.NewAccount{
		Email:        fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
		Name:         "Test User",
		PasswordHash: "hashedpassword",
		TokenLimit:   1000,
	}
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{string(postgresPort)},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(postgresPort),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(3 * time.Minute),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start container")

	port, err := postgresContainer.MappedPort(ctx, postgresPort)
	require.NoError(t, err, "Failed to get port")

	host, err := postgresContainer.Host(ctx)
	require.NoError(t, err, "Failed to get host")

	connStr := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "Failed to create storage after retries")

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath), "Failed to apply migrations")

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		if postgresContainer != nil {
			_ = postgresContainer.Terminate(ctx)
		}
	}

	return storage, cleanup
}
