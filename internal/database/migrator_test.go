package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrations_SortedUpOnly(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_create_forex_news.up.sql":   {Data: []byte("CREATE TABLE forex_news ();")},
		"migrations/0001_create_users.up.sql":        {Data: []byte("CREATE TABLE users ();")},
		"migrations/0001_create_users.down.sql":      {Data: []byte("DROP TABLE users;")},
		"migrations/notes.md":                        {Data: []byte("scratch")},
		"migrations/0003_create_notifications.up.sql": {Data: []byte("CREATE TABLE notifications ();")},
	}

	names, err := ListMigrations(fsys, "migrations")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"0001_create_users.up.sql",
		"0002_create_forex_news.up.sql",
		"0003_create_notifications.up.sql",
	}, names)
}

func TestListMigrations_MissingDir(t *testing.T) {
	_, err := ListMigrations(fstest.MapFS{}, "migrations")
	assert.Error(t, err)
}
