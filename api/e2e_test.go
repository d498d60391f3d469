package api

import (
	"bufio"
	"net"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"minim/deliver"
	"minim/gateway"
	"minim/metrics"
	"minim/presence"
	"minim/store"
)

type lineClient struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dialGateway(t *testing.T, addr string) *lineClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &lineClient{conn: conn, reader: bufio.NewReader(conn)}
}

func (c *lineClient) send(t *testing.T, request string) {
	t.Helper()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := c.conn.Write([]byte(request + "\n"))
	require.NoError(t, err)
}

func (c *lineClient) read(t *testing.T) string {
	t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := c.reader.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
}

// TestEndToEndScenario проверяет полный сценарий: login, контакты,
// подключение к реальному TCP-шлюзу, доставка обеим сторонам, история.
func TestEndToEndScenario(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	collector := metrics.NewCollector("minim")
	registry := presence.NewRegistry()
	router := deliver.NewRouter(st, registry, zap.NewNop(), collector)

	gw := gateway.New(&gateway.Config{
		Addr:         "127.0.0.1:0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Second,
	}, registry, router, zap.NewNop(), collector)

	go gw.Start()
	require.Eventually(t, func() bool {
		return gw.Addr() != nil
	}, time.Second, 10*time.Millisecond)
	t.Cleanup(func() { gw.Shutdown("restart") })

	ts := httptest.NewServer(New(st, zap.NewNop(), collector).Router())
	t.Cleanup(ts.Close)

	aliceHTTP := newTestClient(t)
	bobHTTP := newTestClient(t)

	login(t, aliceHTTP, ts.URL, "alice")
	login(t, bobHTTP, ts.URL, "bob")

	var result map[string]string
	postJSON(t, aliceHTTP, ts.URL+"/add_contact", map[string]string{"username": "bob"}, &result)
	require.Equal(t, "added", result["status"])

	var contacts []string
	getJSON(t, aliceHTTP, ts.URL+"/get_contacts", &contacts)
	require.Equal(t, []string{"bob"}, contacts)

	gwAddr := gw.Addr().String()
	alice := dialGateway(t, gwAddr)
	bob := dialGateway(t, gwAddr)

	alice.send(t, "join|alice")
	require.Equal(t, "ok|join", alice.read(t))
	bob.send(t, "join|bob")
	require.Equal(t, "ok|join", bob.read(t))

	alice.send(t, "send_message|alice|bob|hi")

	assert.Equal(t, "new_message|alice|bob|hi", bob.read(t))
	// Self-echo: пуш отправителю идет до ok
	assert.Equal(t, "new_message|alice|bob|hi", alice.read(t))
	assert.Equal(t, "ok|send_message", alice.read(t))

	var history []historyEntry
	postJSON(t, aliceHTTP, ts.URL+"/get_history", map[string]string{"partner": "bob"}, &history)
	require.Len(t, history, 1)
	assert.Equal(t, historyEntry{Sender: "alice", Text: "hi"}, history[0])
}
