package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Command is a parsed bot command such as "/history AAPL".
type Command struct {
	Name string // lower-case, leading slash, bot mention removed
	Args []string
}

// ParseCommand splits a message into a command and its arguments. ok is
// false for text that is not a slash command.
func ParseCommand(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}, false
	}
	// Group chats append @botname to the command.
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	return Command{Name: name, Args: fields[1:]}, true
}

// Arg returns the i-th argument or "".
func (c Command) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

// CommandHandler returns the reply for a command; an empty reply sends nothing.
type CommandHandler func(ctx context.Context, cmd Command) string

type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// StartPolling long-polls getUpdates and routes commands from the configured
// chat to handler. Other chats are ignored. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: 35 * time.Second, Transport: t.Client.Transport}
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = time.Second
	retry.MaxInterval = time.Minute
	retry.MaxElapsedTime = 0

	offset := 0
	for ctx.Err() == nil {
		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			wait := retry.NextBackOff()
			log.Printf("[WARN] telegram polling failed, retrying in %v: %v", wait, err)
			sleepCtx(ctx, wait)
			continue
		}
		retry.Reset()

		for _, u := range updates {
			offset = u.UpdateID + 1
			t.dispatch(ctx, u, handler)
		}
	}
	log.Println("[INFO] Telegram polling stopped")
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	apiURL := fmt.Sprintf("%s?offset=%d&timeout=30", t.endpoint("getUpdates"), offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read updates: %w", err)
	}
	var result struct {
		OK          bool             `json:"ok"`
		Description string           `json:"description"`
		Result      []telegramUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("getUpdates: status %d: %s", resp.StatusCode, result.Description)
	}
	return result.Result, nil
}

func (t *TelegramNotifier) dispatch(ctx context.Context, u telegramUpdate, handler CommandHandler) {
	if u.Message == nil {
		return
	}
	if strconv.FormatInt(u.Message.Chat.ID, 10) != t.ChatID {
		log.Printf("[WARN] ignoring message from chat %d", u.Message.Chat.ID)
		return
	}
	cmd, ok := ParseCommand(u.Message.Text)
	if !ok {
		return
	}
	log.Printf("[INFO] received command: %s %v", cmd.Name, cmd.Args)
	if reply := handler(ctx, cmd); reply != "" {
		if err := t.Send(ctx, reply); err != nil {
			log.Printf("[ERROR] send reply: %v", err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
