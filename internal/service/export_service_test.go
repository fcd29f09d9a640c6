package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/models"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
)

func TestExportAssetsCSV(t *testing.T) {
	asset := availableAsset("a1")
	asset.Cost = decimal.RequireFromString("1200.5")
	asset.WarrantyExpiry = day(10, fixedNow)
	svc := NewExportService(newMemAssets(asset), true, zap.NewNop(), WithClock(fixedClock))

	file, err := svc.ExportAssets(context.Background(), adminActor, "csv", models.AssetFilter{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "assets_20240615_090000.csv", file.Filename)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Name,Serial"))
	assert.Contains(t, lines[1], "1200.50")
	assert.Contains(t, lines[1], "2024-06-25,due_soon")
}

func TestExportAssetsPDF(t *testing.T) {
	svc := NewExportService(newMemAssets(availableAsset("a1")), true, zap.NewNop(), WithClock(fixedClock))

	file, err := svc.ExportAssets(context.Background(), adminActor, "PDF", models.AssetFilter{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportAssetsGuards(t *testing.T) {
	svc := NewExportService(newMemAssets(), true, zap.NewNop())

	_, err := svc.ExportAssets(context.Background(), aliceActor, "csv", models.AssetFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	_, err = svc.ExportAssets(context.Background(), adminActor, "xlsx", models.AssetFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	disabled := NewExportService(newMemAssets(), false, zap.NewNop())
	_, err = disabled.ExportAssets(context.Background(), adminActor, "csv", models.AssetFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
