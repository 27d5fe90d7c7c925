package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ChuLiYu/widgetsync/internal/application"
	"github.com/ChuLiYu/widgetsync/internal/demo"
	"github.com/ChuLiYu/widgetsync/internal/store"
	"github.com/ChuLiYu/widgetsync/pkg/types"
	"github.com/ChuLiYu/widgetsync/pkg/uid"
)

type Config struct {
	Client struct {
		Lifetime time.Duration `yaml:"lifetime"`
	} `yaml:"client"`
	Watchdog struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"watchdog"`
	Store struct {
		Dir string `yaml:"dir"`
	} `yaml:"store"`
}

type update struct {
	ID     string `json:"id"`
	Widget string `json:"widget"`
	Action string `json:"action"`
	Type   string `json:"type"`
	Text   string `json:"text"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/demo/main.go <counter|expire>")
		os.Exit(1)
	}

	mode := os.Args[1]
	cfg, err := loadConfig("configs/default.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	st, err := store.Open(filepath.Join(cfg.Store.Dir, "widgets.json"))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	counter := demo.NewCounter(st, logger)

	switch mode {
	case "counter":
		runCounter(counter, cfg, logger)
	case "expire":
		runExpire(counter, logger)
	default:
		log.Fatalf("Unknown mode %q", mode)
	}
}

// runCounter plays a browser: create, initial sync, three clicks, kill.
func runCounter(counter *demo.Counter, cfg *Config, logger *slog.Logger) {
	app := application.New(counter, application.Config{
		ClientLifetime:   cfg.Client.Lifetime,
		WatchdogInterval: cfg.Watchdog.Interval,
		Logger:           logger,
	})

	id := app.CreateClient(types.CreateRequest{PagePath: "/", Parameters: map[string]string{"name": "demo"}})
	fmt.Printf("✓ Client %s created (total so far: %d)\n", id, counter.Total())

	resp, _ := app.Synchronize(id, types.SyncRequest{})
	updates := decode(resp)
	fmt.Printf("\n📦 Initial tree: %d updates\n", len(updates))
	var button string
	for _, u := range updates {
		fmt.Printf("  %-5s %-5s %-15s %s%s\n", u.ID, u.Widget, u.Action, u.Type, u.Text)
		if u.Action == "create widget" && u.Type == "button" {
			button = u.Widget
		}
	}
	ack := updates[len(updates)-1].ID
	var lastEvents string

	for i := 1; i <= 3; i++ {
		ev := uid.New()
		events := fmt.Sprintf(`[{"id":%q,"widget":%q,"type":"click"}]`, ev, button)
		lastEvents = events
		resp, _ = app.Synchronize(id, types.SyncRequest{Events: json.RawMessage(events), LastUpdate: ack})
		updates = decode(resp)
		fmt.Printf("\n🖱  Click %d (event %s, lastEvent %s)\n", i, ev, resp.LastEvent)
		for _, u := range updates {
			fmt.Printf("  %-5s %-5s %-15s %s\n", u.ID, u.Widget, u.Action, u.Text)
		}
		if len(updates) > 0 {
			ack = updates[len(updates)-1].ID
		}
	}

	// 重送最後一次點擊：事件 ID 不大於游標，直接略過
	resp, _ = app.Synchronize(id, types.SyncRequest{Events: json.RawMessage(lastEvents), LastUpdate: ack})
	fmt.Printf("\n🔁 Replayed last click: lastEvent %s, pending updates: %d (total still %d)\n", resp.LastEvent, len(resp.Updates), counter.Total())

	fmt.Printf("\n📊 Stats: %v\n", app.Stats())
	fmt.Printf("✓ Kill: %v, again: %v\n", app.KillClient(id), app.KillClient(id))
	fmt.Printf("✓ Persisted total: %d (run again to see it grow)\n", counter.Total())
}

// runExpire shows the watchdog removing an idle client.
func runExpire(counter *demo.Counter, logger *slog.Logger) {
	app := application.New(counter, application.Config{
		ClientLifetime:   300 * time.Millisecond,
		WatchdogInterval: 50 * time.Millisecond,
		Logger:           logger,
	})
	app.Start(context.Background())
	defer app.Shutdown()

	id := app.CreateClient(types.CreateRequest{})
	fmt.Printf("✓ Client %s created, lifetime 300ms\n", id)

	for i := 0; i < 4; i++ {
		time.Sleep(100 * time.Millisecond)
		_, ok := app.Synchronize(id, types.SyncRequest{})
		fmt.Printf("  synchronize after 100ms: alive=%v\n", ok)
	}

	fmt.Println("\n⏳ Going idle for 600ms...")
	time.Sleep(600 * time.Millisecond)
	_, ok := app.Synchronize(id, types.SyncRequest{})
	fmt.Printf("  synchronize after idling: alive=%v, clients=%d\n", ok, app.ClientCount())
}

func decode(resp types.SyncResponse) []update {
	out := make([]update, 0, len(resp.Updates))
	for _, raw := range resp.Updates {
		var u update
		if err := json.Unmarshal(raw, &u); err == nil {
			out = append(out, u)
		}
	}
	return out
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Client.Lifetime = 3 * time.Minute
	cfg.Watchdog.Interval = 100 * time.Millisecond
	cfg.Store.Dir = "./data"

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
