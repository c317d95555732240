package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"clinicbook/internal/config"
	"clinicbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformBackup(t *testing.T) {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "bookings.db")
	db, err := New(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.CreateSerialized(context.Background(),
		newBooking("dr-adams", at(9, 0), 30, models.StatusScheduled)))

	backupDir := t.TempDir()
	svc := NewBackupService(dbPath, config.BackupConfig{
		Enabled:     true,
		StoragePath: backupDir,
	}, &logger)

	require.NoError(t, svc.PerformBackup())

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// The snapshot is itself a usable database.
	snapshot, err := New(filepath.Join(backupDir, entries[0].Name()), &logger)
	require.NoError(t, err)
	defer snapshot.Close()

	bookings, err := snapshot.List(context.Background(), models.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestBackupDisabledDoesNothing(t *testing.T) {
	logger := zerolog.Nop()
	svc := NewBackupService("/nonexistent.db", config.BackupConfig{Enabled: false}, &logger)

	// Returns immediately without touching the filesystem.
	svc.Start(context.Background())
}
