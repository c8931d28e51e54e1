package article

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

func TestProcessor_List(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
		items     []models.ArticleSummary
		repoErr   error
		wantLen   int
		wantErr   bool
	}{
		{name: "default limit", limit: 0, wantLimit: 50, items: []models.ArticleSummary{{ID: "1"}, {ID: "2"}}, wantLen: 2},
		{name: "limit capped", limit: 500, wantLimit: 100, items: []models.ArticleSummary{}, wantLen: 0},
		{name: "custom limit", limit: 10, wantLimit: 10, items: nil, wantLen: 0},
		{
			name: "table missing gives empty list", limit: 20, wantLimit: 20,
			repoErr: apperr.New(apperr.StorageNotProvisioned, "articles table does not exist"), wantLen: 0,
		},
		{
			name: "storage failure", limit: 20, wantLimit: 20,
			repoErr: apperr.New(apperr.StorageUnavailable, "database unavailable"), wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, m := newProcessor(false)
			m.repo.On("ListArticles", mock.Anything, "acc-1", tt.wantLimit).Return(tt.items, tt.repoErr).Once()

			got, err := p.List(context.Background(), "acc-1", tt.limit)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.wantLen)
			m.repo.AssertExpectations(t)
		})
	}
}

func TestProcessor_Get(t *testing.T) {
	own := &models.ArticleRecord{ID: "art-1", AccountID: "acc-1", Title: "Mine"}
	foreign := &models.ArticleRecord{ID: "art-2", AccountID: "acc-2", Title: "Theirs"}

	tests := []struct {
		name     string
		id       string
		rec      *models.ArticleRecord
		repoErr  error
		wantKind apperr.Kind
	}{
		{name: "own record", id: "art-1", rec: own},
		{name: "foreign record", id: "art-2", rec: foreign, wantKind: apperr.Forbidden},
		{name: "missing record", id: "art-3", repoErr: apperr.New(apperr.NotFound, "article not found"), wantKind: apperr.NotFound},
		{name: "table missing", id: "art-4", repoErr: apperr.New(apperr.StorageNotProvisioned, "no table"), wantKind: apperr.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, m := newProcessor(false)
			m.repo.On("GetArticle", mock.Anything, tt.id).Return(tt.rec, tt.repoErr).Once()

			got, err := p.Get(context.Background(), "acc-1", tt.id)
			if tt.wantKind != apperr.Unknown {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, own, got)
		})
	}
}

func TestProcessor_Delete(t *testing.T) {
	t.Run("own record", func(t *testing.T) {
		p, m := newProcessor(false)
		m.repo.On("DeleteArticle", mock.Anything, "acc-1", "art-1").Return(int64(1), nil).Once()

		assert.NoError(t, p.Delete(context.Background(), "acc-1", "art-1"))
		m.repo.AssertExpectations(t)
	})

	t.Run("another account's record is not found", func(t *testing.T) {
		p, m := newProcessor(false)
		m.repo.On("DeleteArticle", mock.Anything, "acc-2", "art-1").Return(int64(0), nil).Once()

		err := p.Delete(context.Background(), "acc-2", "art-1")
		require.Error(t, err)
		assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	})

	t.Run("storage failure", func(t *testing.T) {
		p, m := newProcessor(false)
		m.repo.On("DeleteArticle", mock.Anything, "acc-1", "art-1").
			Return(int64(0), apperr.New(apperr.StorageUnavailable, "database unavailable")).Once()

		err := p.Delete(context.Background(), "acc-1", "art-1")
		assert.Equal(t, apperr.StorageUnavailable, apperr.KindOf(err))
	})
}
