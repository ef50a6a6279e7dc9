// Package obs is a minimal obs-websocket v5 client covering the calls the
// monitors need: source screenshots and recording control. Calls are
// serialized on one connection; the monitors call synchronously from their
// own goroutines.
package obs

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mkondo/battlewatch/domain/monitor"
)

const (
	rpcVersion  = 1
	callTimeout = 10 * time.Second
)

// Websocket opcodes of the obs-websocket v5 protocol.
const (
	opHello      = 0
	opIdentify   = 1
	opIdentified = 2
	opEvent      = 5
	opRequest    = 6
	opResponse   = 7
)

type envelope struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type helloData struct {
	ObsWebSocketVersion string `json:"obsWebSocketVersion"`
	RPCVersion          int    `json:"rpcVersion"`
	Authentication      *struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication"`
}

type identifyData struct {
	RPCVersion         int    `json:"rpcVersion"`
	Authentication     string `json:"authentication,omitempty"`
	EventSubscriptions int    `json:"eventSubscriptions"`
}

type requestData struct {
	RequestType string `json:"requestType"`
	RequestID   string `json:"requestId"`
	RequestData any    `json:"requestData,omitempty"`
}

type responseData struct {
	RequestType   string `json:"requestType"`
	RequestID     string `json:"requestId"`
	RequestStatus struct {
		Result  bool   `json:"result"`
		Code    int    `json:"code"`
		Comment string `json:"comment"`
	} `json:"requestStatus"`
	ResponseData json.RawMessage `json:"responseData"`
}

// Client is a connected obs-websocket session. Safe for use from multiple
// goroutines; requests are serialized.
type Client struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	logger *slog.Logger
}

// Dial connects and completes the Hello/Identify handshake, answering the
// SHA-256 challenge when the server requires authentication.
func Dial(host string, port int, password string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	url := fmt.Sprintf("ws://%s:%d", host, port)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{conn: conn, logger: logger}
	if err := c.identify(password); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("obs connected", "url", url)
	return c, nil
}

func (c *Client) identify(password string) error {
	var env envelope
	if err := c.read(&env); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if env.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", env.Op)
	}
	var hello helloData
	if err := json.Unmarshal(env.D, &hello); err != nil {
		return fmt.Errorf("parse hello: %w", err)
	}

	id := identifyData{RPCVersion: rpcVersion}
	if hello.Authentication != nil {
		id.Authentication = authResponse(password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}
	if err := c.write(opIdentify, id); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}
	if err := c.read(&env); err != nil {
		return fmt.Errorf("read identified: %w", err)
	}
	if env.Op != opIdentified {
		return fmt.Errorf("identify rejected (op %d)", env.Op)
	}
	return nil
}

// authResponse answers the v5 challenge:
// base64(sha256(base64(sha256(password+salt)) + challenge)).
func authResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	proof := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(proof[:])
}

func (c *Client) write(op int, d any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.conn.WriteJSON(envelope{Op: op, D: raw})
}

func (c *Client) read(env *envelope) error {
	c.conn.SetReadDeadline(time.Now().Add(callTimeout))
	return c.conn.ReadJSON(env)
}

// call issues one request and waits for its response, skipping any event
// messages that arrive in between. out may be nil when the response data is
// not needed.
func (c *Client) call(reqType string, data, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.NewString()
	if err := c.write(opRequest, requestData{RequestType: reqType, RequestID: id, RequestData: data}); err != nil {
		return fmt.Errorf("%s: %w", reqType, err)
	}
	for {
		var env envelope
		if err := c.read(&env); err != nil {
			return fmt.Errorf("%s: %w", reqType, err)
		}
		if env.Op == opEvent {
			continue
		}
		if env.Op != opResponse {
			continue
		}
		var resp responseData
		if err := json.Unmarshal(env.D, &resp); err != nil {
			return fmt.Errorf("%s: parse response: %w", reqType, err)
		}
		if resp.RequestID != id {
			continue
		}
		if !resp.RequestStatus.Result {
			return fmt.Errorf("%s: code %d %s", reqType, resp.RequestStatus.Code, resp.RequestStatus.Comment)
		}
		if out != nil && len(resp.ResponseData) > 0 {
			if err := json.Unmarshal(resp.ResponseData, out); err != nil {
				return fmt.Errorf("%s: parse response data: %w", reqType, err)
			}
		}
		return nil
	}
}

// Close shuts the websocket connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

var (
	_ monitor.Recorder        = (*Client)(nil)
	_ monitor.ScreenshotTaker = (*Client)(nil)
	_ monitor.TextUpdater     = (*Client)(nil)
)
