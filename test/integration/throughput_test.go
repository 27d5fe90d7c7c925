package integration

import (
	"testing"
)

// BenchmarkClickRoundTrip 量測一次點擊的完整 HTTP 往返（含 store 落盤）
func BenchmarkClickRoundTrip(b *testing.B) {
	n := startNode(b, b.TempDir())
	defer n.stop(b)

	br := open(b, n.srv.URL, "/")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		br.click()
	}
	b.StopTimer()
}

// BenchmarkParallelBrowsers 多個瀏覽器併發同步
func BenchmarkParallelBrowsers(b *testing.B) {
	n := startNode(b, b.TempDir())
	defer n.stop(b)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		br := open(b, n.srv.URL, "/")
		for pb.Next() {
			br.sync("")
		}
	})
	b.StopTimer()
}
