package names_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/volcutover/volcutover/pkg/names"
)

func TestTempVolume(t *testing.T) {
	assert.Equal(t, "app-data-tmp", names.TempVolume("app-data"))
}

func TestMigrator(t *testing.T) {
	assert.Equal(t, "app-migrator", names.Migrator("app"))
}
