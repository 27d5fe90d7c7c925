package store

// ============================================================================
// 職責說明：
// 1. 以 key -> JSON 值 的形式保存頁面需要跨 client 存活的小型資料
// 2. 每次修改都以原子性寫入（temp file + rename）落地，避免半寫入的檔案
// 3. 載入時驗證 schema 版本與檔案完整性
// 4. path 為空時只存在記憶體中（測試與 demo 用）
// ============================================================================

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// ============================================================================
// 錯誤定義
// ============================================================================

var (
	ErrNotFound            = errors.New("record not found")
	ErrClosed              = errors.New("store is closed")
	ErrCorrupted           = errors.New("store file is corrupted")
	ErrIncompatibleVersion = errors.New("store schema version is incompatible")
)

const schemaVersion = 1

// document 檔案內容
type document struct {
	SchemaVer int                        `json:"schema_version"`
	Records   map[string]json.RawMessage `json:"records"`
}

// Store JSON 記錄存放區
type Store struct {
	path string // 檔案路徑；空字串表示純記憶體

	mu      sync.Mutex // 保護 records 與檔案操作
	records map[string]json.RawMessage
	closed  bool
}

// ============================================================================
// 核心方法實作
// ============================================================================

// Open 開啟（或建立）存放區
//
// 行為：
//   - 檔案不存在時回傳空的存放區，第一次 Put 才會建立檔案
//   - 檔案損壞或版本不符時回傳錯誤
//
// 參數：
//   - path: 檔案路徑；空字串表示不落地
//
// 返回值：
//   - *Store: 存放區
//   - error: 載入失敗的錯誤
func Open(path string) (*Store, error) {
	s := &Store{path: path, records: make(map[string]json.RawMessage)}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if doc.SchemaVer != schemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrIncompatibleVersion, doc.SchemaVer, schemaVersion)
	}
	if doc.Records != nil {
		s.records = doc.Records
	}
	return s, nil
}

// Memory 回傳不落地的存放區
func Memory() *Store {
	s, _ := Open("")
	return s
}

// Get 讀取 key 並解碼到 v
func (s *Store) Get(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	raw, ok := s.records[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// Put 寫入 key 並立即落地
func (s *Store) Put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	prev, existed := s.records[key]
	s.records[key] = raw
	if err := s.flush(); err != nil {
		// 落地失敗時恢復記憶體狀態，保持與檔案一致
		if existed {
			s.records[key] = prev
		} else {
			delete(s.records, key)
		}
		return err
	}
	return nil
}

// Delete 移除 key；不存在時回傳 ErrNotFound
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	prev, ok := s.records[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(s.records, key)
	if err := s.flush(); err != nil {
		s.records[key] = prev
		return err
	}
	return nil
}

// Keys 回傳排序後的所有 key
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Path 取得檔案路徑（用於測試與除錯）
func (s *Store) Path() string {
	return s.path
}

// Close 之後所有操作回傳 ErrClosed
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// flush 原子性寫入
//
// 1. 寫入臨時檔案（.tmp）
// 2. 使用 os.Rename 原子性替換原始檔案
//
// 呼叫者必須持有 s.mu。
func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(document{SchemaVer: schemaVersion, Records: s.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename store: %w", err)
	}
	return nil
}
