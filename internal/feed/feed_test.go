package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/pkg/errors"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type FeedTestSuite struct {
	suite.Suite
	log *logger.Logger
}

func (suite *FeedTestSuite) SetupTest() {
	suite.log = logger.NewNopLogger()
}

// newFeedServer serves a websocket endpoint that writes each payload in order
// and then holds the connection open.
func newFeedServer(t *testing.T, payloads [][]byte) *httptest.Server {
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}

		for _, payload := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}

		// Keep the connection open until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func (suite *FeedTestSuite) TestConnectRejectsNonWebsocketScheme() {
	client := NewClient("http://feed.example.com", suite.log)

	err := client.Connect(context.Background())
	suite.Require().Error(err)
	suite.Require().True(errors.HasCode(err, errors.ErrCodeInvalidFeedHost))
	suite.Require().True(errors.IsFatalBoot(err))
}

func (suite *FeedTestSuite) TestConnectFailsWhenHostUnreachable() {
	client := NewClient("ws://127.0.0.1:1", suite.log)

	err := client.Connect(context.Background())
	suite.Require().Error(err)
	suite.Require().True(errors.HasCode(err, errors.ErrCodeFeedConnectFailed))
}

func (suite *FeedTestSuite) TestDeliversEventsToEveryListener() {
	tick := types.PriceTick{
		PoolIdentifier: "minswap.ADA-INDY",
		Close:          decimal.RequireFromString("0.52"),
		Volume:         decimal.RequireFromString("12000"),
		Slot:           4492900,
	}
	payload, err := types.EncodeEvent(tick)
	suite.Require().NoError(err)

	server := newFeedServer(suite.T(), [][]byte{payload})
	defer server.Close()

	client := NewClient(wsURL(server), suite.log)

	var mu sync.Mutex
	received := make(map[string]int)
	done := make(chan struct{}, 2)

	for _, name := range []string{"first", "second"} {
		name := name
		client.AddListener(func(event types.MarketEvent) {
			mu.Lock()
			received[name]++
			mu.Unlock()
			done <- struct{}{}
		})
	}

	suite.Require().NoError(client.Connect(context.Background()))
	defer client.Close()

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			suite.FailNow("timed out waiting for event delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	suite.Require().Equal(1, received["first"])
	suite.Require().Equal(1, received["second"])
}

func (suite *FeedTestSuite) TestDropsUndecodableMessageAndContinues() {
	tick := types.PriceTick{
		PoolIdentifier: "minswap.ADA-INDY",
		Close:          decimal.RequireFromString("0.50"),
		Volume:         decimal.Zero,
		Slot:           4493000,
	}
	payload, err := types.EncodeEvent(tick)
	suite.Require().NoError(err)

	server := newFeedServer(suite.T(), [][]byte{
		[]byte(`{"type":"someday-maybe","data":{}}`),
		payload,
	})
	defer server.Close()

	client := NewClient(wsURL(server), suite.log)

	events := make(chan types.MarketEvent, 1)
	client.AddListener(func(event types.MarketEvent) {
		events <- event
	})

	suite.Require().NoError(client.Connect(context.Background()))
	defer client.Close()

	select {
	case event := <-events:
		suite.Require().Equal(types.EventTypePriceTick, event.EventType())
	case <-time.After(5 * time.Second):
		suite.FailNow("timed out waiting for event after malformed message")
	}
}

func (suite *FeedTestSuite) TestCloseIsIdempotent() {
	server := newFeedServer(suite.T(), nil)
	defer server.Close()

	client := NewClient(wsURL(server), suite.log)
	suite.Require().NoError(client.Connect(context.Background()))

	suite.Require().NoError(client.Close())
	suite.Require().NoError(client.Close())
}

func TestFeedTestSuite(t *testing.T) {
	suite.Run(t, new(FeedTestSuite))
}
