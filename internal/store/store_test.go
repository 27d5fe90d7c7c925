package store

// ============================================================================
// Store 測試檔案
// 職責：驗證原子性寫入、重新開啟後的載入、版本驗證與錯誤處理
// ============================================================================

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterRecord struct {
	Total   int    `json:"total"`
	Updated string `json:"updated"`
}

// TestPutAndReopen 測試寫入後重新開啟仍可讀回
func TestPutAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "store.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("counter", counterRecord{Total: 7, Updated: "now"}))
	require.NoError(t, s.Put("visits", 3))

	reopened, err := Open(path)
	require.NoError(t, err)

	var rec counterRecord
	require.NoError(t, reopened.Get("counter", &rec))
	assert.Equal(t, counterRecord{Total: 7, Updated: "now"}, rec)

	var visits int
	require.NoError(t, reopened.Get("visits", &visits))
	assert.Equal(t, 3, visits)
	assert.Equal(t, []string{"counter", "visits"}, reopened.Keys())
	assert.Equal(t, path, reopened.Path())
}

// TestAtomicWrite 測試不留下臨時檔案
func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Put("k", "v"))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"schema_version": 1`)
}

// TestFirstBoot 測試檔案不存在時為空
func TestFirstBoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	s, err := Open(path)
	require.NoError(t, err)

	var v int
	assert.ErrorIs(t, s.Get("anything", &v), ErrNotFound)
	assert.Empty(t, s.Keys())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "opening must not create the file")
}

// TestVersionMismatch 測試版本不相容
func TestVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version":99,"records":{}}`), 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

// TestCorrupted 測試損壞的檔案
func TestCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version":1,"rec`), 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrCorrupted)
}

// TestWriteFailure 測試落地失敗時記憶體狀態回滾
func TestWriteFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("kept", 1))

	// 讓 rename 目標變成目錄，寫入必定失敗
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	assert.Error(t, s.Put("lost", 2))
	var v int
	assert.ErrorIs(t, s.Get("lost", &v), ErrNotFound)
	require.NoError(t, s.Get("kept", &v))
	assert.Equal(t, 1, v)
}

func TestDelete(t *testing.T) {
	s := Memory()
	require.NoError(t, s.Put("a", 1))

	require.NoError(t, s.Delete("a"))
	assert.ErrorIs(t, s.Delete("a"), ErrNotFound)
	assert.Empty(t, s.Keys())
}

func TestDecodeError(t *testing.T) {
	s := Memory()
	require.NoError(t, s.Put("text", "not a number"))

	var n int
	err := s.Get("text", &n)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestEncodeError(t *testing.T) {
	s := Memory()
	assert.Error(t, s.Put("ch", make(chan int)))
	assert.Empty(t, s.Keys())
}

func TestClosed(t *testing.T) {
	s := Memory()
	require.NoError(t, s.Close())

	var v int
	assert.ErrorIs(t, s.Put("a", 1), ErrClosed)
	assert.ErrorIs(t, s.Get("a", &v), ErrClosed)
	assert.ErrorIs(t, s.Delete("a"), ErrClosed)
}

// TestConcurrentWrites 測試並發寫入
func TestConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Put(fmt.Sprintf("key-%02d", i), i))
		}(i)
	}
	wg.Wait()

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Len(t, reopened.Keys(), 20)
}
