package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"derivbot-go/internal/config"
)

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== DerivBot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit trade knobs")
		fmt.Println("3) Edit signal settings")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch bot")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editTrade(reader, cfg)
		case "3":
			editSignal(reader, cfg)
		case "4":
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "config not saved: %v\n", err)
				continue
			}
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchBot(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Endpoint: %s (app_id %d)\n", cfg.Deriv.Endpoint, cfg.Deriv.AppID)
	fmt.Printf("Token set: %t\n", cfg.Deriv.Token != "")
	fmt.Printf("Symbol: %s | stake %.2f %s | max stake %.2f\n", cfg.Trade.Symbol, cfg.Trade.Stake, cfg.Trade.Currency, cfg.Trade.MaxStake)
	fmt.Printf("Contract duration: %d%s\n", cfg.Trade.Duration, cfg.Trade.DurationUnit)
	fmt.Printf("Granularities (s): %v | history count %d\n", cfg.Signal.Granularities, cfg.Signal.HistoryCount)
	fmt.Printf("Volume: %s %s %.2f (ratio threshold %.2f)\n", cfg.Signal.VolumeMode, cfg.Signal.Comparison, cfg.Signal.VolumeThreshold, cfg.Signal.RatioThreshold)
	fmt.Printf("Tick window: %d ticks / %s | require ticks %t\n", cfg.Ticks.MaxTicks, cfg.Ticks.Timeout(), cfg.Ticks.RequireTicks)
	fmt.Printf("Schedule: %s | poll %s | gate %s\n", cfg.Schedule.Mode, cfg.Schedule.PollInterval(), cfg.Schedule.Gate())
}

func editTrade(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Trade ---")
	cfg.Trade.Symbol = promptString(reader, "Symbol", cfg.Trade.Symbol)
	cfg.Trade.Stake = promptFloat(reader, "Stake", cfg.Trade.Stake)
	cfg.Trade.MaxStake = promptFloat(reader, "Max stake (0 = unlimited)", cfg.Trade.MaxStake)
	cfg.Trade.Currency = promptString(reader, "Currency", cfg.Trade.Currency)
	cfg.Trade.Duration = int(promptFloat(reader, "Duration", float64(cfg.Trade.Duration)))
	cfg.Trade.DurationUnit = promptString(reader, "Duration unit (t/s/m/h/d)", cfg.Trade.DurationUnit)
}

func editSignal(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Signal ---")
	fmt.Printf("Current granularities: %v\n", cfg.Signal.Granularities)
	fmt.Print("Enter granularities in seconds, comma-separated (blank to keep): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		var out []int
		for _, p := range strings.Split(strings.TrimSpace(line), ",") {
			g, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || g <= 0 {
				fmt.Printf("invalid granularity %q, keeping %v\n", p, cfg.Signal.Granularities)
				out = nil
				break
			}
			out = append(out, g)
		}
		if len(out) > 0 {
			cfg.Signal.Granularities = out
		}
	}
	cfg.Signal.VolumeMode = promptString(reader, "Volume mode (count/ratio)", cfg.Signal.VolumeMode)
	cfg.Signal.VolumeThreshold = promptFloat(reader, "Volume threshold (ticks)", cfg.Signal.VolumeThreshold)
	cfg.Signal.RatioThreshold = promptFloat(reader, "Ratio threshold", cfg.Signal.RatioThreshold)
	cfg.Signal.Comparison = promptString(reader, "Comparison (gt/gte)", cfg.Signal.Comparison)
	cfg.Ticks.MaxTicks = int(promptFloat(reader, "Max ticks per window", float64(cfg.Ticks.MaxTicks)))
	cfg.Ticks.TimeoutMs = int(promptFloat(reader, "Tick window (seconds)", float64(cfg.Ticks.TimeoutMs)/1000) * 1000)
}

func launchBot(reader *bufio.Reader) {
	fmt.Println("Launching bot (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/bot")
	cmd.Env = append(os.Environ(), "BOT_CONFIG="+locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start bot: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the bot and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line == "" {
		return current
	}
	return line
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	path := config.PathFromEnv()
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Clean(path)
}
