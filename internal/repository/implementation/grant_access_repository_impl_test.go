package implementation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/model"
	"premarket-access-be/internal/repository/contract"
	"premarket-access-be/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseActiveKeyIsVersionChecked(t *testing.T) {
	db, err := database.NewQuietGormDB(database.DriverSQLite, filepath.Join(t.TempDir(), "grants.db"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	ctx := context.Background()
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := NewGrantAccessRepository(db)

	g := &entity.GrantAccess{
		Id:             uuid.New(),
		RequestId:      "Rslot",
		AgentId:        uuid.New(),
		Status:         entity.GrantStatusFree,
		PaymentStatus:  entity.PaymentStatusFree,
		Currency:       entity.CurrencyUSD,
		CreatedAt:      created,
		TransitionedAt: created,
		Version:        1,
	}
	require.NoError(t, repo.Create(ctx, g))

	stale := *g
	stale.Version = 0
	releasedAt := created.Add(72 * time.Hour)
	assert.ErrorIs(t, repo.ReleaseActiveKey(ctx, &stale, releasedAt), contract.ErrVersionConflict)

	require.NoError(t, repo.ReleaseActiveKey(ctx, g, releasedAt))
	assert.Equal(t, int64(2), g.Version)

	var row model.GrantAccess
	require.NoError(t, db.First(&row, "id = ?", g.Id).Error)
	assert.Nil(t, row.ActiveKey)
	assert.Equal(t, int64(2), row.Version)
	assert.True(t, releasedAt.Equal(row.UpdatedAt.UTC()))

	// the released slot can be claimed again
	next := *g
	next.Id = uuid.New()
	next.Version = 1
	require.NoError(t, repo.Create(ctx, &next))
}
