package steam

import (
	"context"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sync"

	"hourfarm/internal/platform"

	gosteam "github.com/Philipp15b/go-steam/v3"
	"github.com/Philipp15b/go-steam/v3/protocol"
	"github.com/Philipp15b/go-steam/v3/protocol/protobuf"
	"github.com/Philipp15b/go-steam/v3/protocol/steamlang"
	"github.com/hashicorp/go-retryablehttp"
	"google.golang.org/protobuf/proto"
)

const eventBuffer = 16

type conn struct {
	client *gosteam.Client
	opts   platform.ConnectOptions
	http   *retryablehttp.Client
	out    chan platform.Event

	mu            sync.Mutex
	authCode      string
	twoFactorCode string
	awaitingCode  bool
	closed        bool
}

func newConn(opts platform.ConnectOptions, http *retryablehttp.Client) *conn {
	return &conn{
		client: gosteam.NewClient(),
		opts:   opts,
		http:   http,
		out:    make(chan platform.Event, eventBuffer),
	}
}

func (c *conn) connect() error {
	go c.run()
	if _, err := c.client.Connect(); err != nil {
		return err
	}
	return nil
}

func (c *conn) Events() <-chan platform.Event { return c.out }

func (c *conn) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.client.Disconnect()
}

func (c *conn) DeclareActivity(titleIDs []uint32) error {
	games := make([]*protobuf.CMsgClientGamesPlayed_GamePlayed, 0, len(titleIDs))
	for _, id := range titleIDs {
		games = append(games, &protobuf.CMsgClientGamesPlayed_GamePlayed{
			GameId: proto.Uint64(uint64(id)),
		})
	}
	c.client.Write(protocol.NewClientMsgProtobuf(steamlang.EMsg_ClientGamesPlayed, &protobuf.CMsgClientGamesPlayed{
		GamesPlayed: games,
	}))
	return nil
}

func (c *conn) SetVisibility(v platform.Visibility) error {
	state := steamlang.EPersonaState_Online
	if v == platform.VisibilityOffline {
		state = steamlang.EPersonaState_Offline
	}
	c.client.Social.SetPersonaState(state)
	return nil
}

// ownedGamesDoc mirrors the community profile games XML feed.
type ownedGamesDoc struct {
	Games []struct {
		AppID uint32 `xml:"appID"`
		Name  string `xml:"name"`
	} `xml:"games>game"`
}

func (c *conn) RequestOwnedTitles(ctx context.Context) ([]platform.OwnedTitle, error) {
	sid := c.client.SteamId()
	if sid == 0 {
		return nil, fmt.Errorf("steam: not logged on")
	}
	url := fmt.Sprintf("https://steamcommunity.com/profiles/%d/games?tab=all&xml=1", uint64(sid))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("steam: games feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("steam: games feed status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	var doc ownedGamesDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("steam: games feed decode: %w", err)
	}
	out := make([]platform.OwnedTitle, 0, len(doc.Games))
	for _, g := range doc.Games {
		out = append(out, platform.OwnedTitle{TitleID: g.AppID, Name: g.Name})
	}
	return out, nil
}

// run translates go-steam events into platform events until the session is
// finished for good, then closes the event channel.
func (c *conn) run() {
	defer close(c.out)
	for ev := range c.client.Events() {
		switch e := ev.(type) {
		case *gosteam.ConnectedEvent:
			c.logOn()

		case *gosteam.LoggedOnEvent:
			c.emit(platform.AuthenticatedEvent{})

		case *gosteam.LogOnFailedEvent:
			if done := c.handleLogOnFailed(e.Result); done {
				return
			}

		case *gosteam.LoginKeyEvent:
			c.emit(platform.CredentialTokenEvent{Token: e.LoginKey})

		case *gosteam.MachineAuthUpdateEvent:
			c.emit(platform.DeviceArtifactEvent{Data: e.Hash})

		case *gosteam.PersonaStateEvent:
			if e.FriendId == c.client.SteamId() {
				c.emit(platform.IdentityEvent{Profile: platform.Profile{
					DisplayName: e.Name,
					AvatarHash:  hex.EncodeToString(e.Avatar),
				}})
			}

		case *gosteam.DisconnectedEvent:
			c.mu.Lock()
			awaiting := c.awaitingCode
			closed := c.closed
			c.mu.Unlock()
			if awaiting && !closed {
				// Logon was refused pending a guard code; Respond will
				// reconnect on the same Conn.
				continue
			}
			if !closed {
				c.emit(platform.DisconnectedEvent{Message: "connection lost"})
			}
			return

		case gosteam.FatalErrorEvent:
			c.emit(platform.ErrorEvent{Reason: platform.ReasonTransient, Message: e.Error()})
			return
		}
	}
}

func (c *conn) logOn() {
	c.mu.Lock()
	details := &gosteam.LogOnDetails{
		Username:               c.opts.AccountID,
		Password:               c.opts.Password,
		LoginKey:               c.opts.CredentialToken,
		AuthCode:               c.authCode,
		TwoFactorCode:          c.twoFactorCode,
		ShouldRememberPassword: true,
	}
	if len(c.opts.DeviceArtifact) > 0 {
		details.SentryFileHash = gosteam.SentryHash(c.opts.DeviceArtifact)
	}
	c.mu.Unlock()
	c.client.Auth.LogOn(details)
}

func (c *conn) handleLogOnFailed(result steamlang.EResult) bool {
	switch result {
	case steamlang.EResult_AccountLogonDenied, steamlang.EResult_AccountLoginDeniedNeedTwoFactor:
		mobile := result == steamlang.EResult_AccountLoginDeniedNeedTwoFactor
		c.mu.Lock()
		c.awaitingCode = true
		c.mu.Unlock()
		c.emit(platform.TwoFactorRequiredEvent{
			Domain:  "steam",
			Respond: func(code string) { c.respond(code, mobile) },
		})
		return false

	case steamlang.EResult_InvalidPassword:
		c.emit(platform.ErrorEvent{
			Reason:  platform.ReasonInvalidCredential,
			Message: result.String(),
		})
		return true

	default:
		c.emit(platform.ErrorEvent{
			Reason:  platform.ReasonTransient,
			Message: result.String(),
		})
		return true
	}
}

// respond retries the logon with the user-supplied guard code on the same
// Conn so the coordinator keeps a single event stream per attempt.
func (c *conn) respond(code string, mobile bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if mobile {
		c.twoFactorCode = code
	} else {
		c.authCode = code
	}
	c.awaitingCode = false
	c.mu.Unlock()

	if _, err := c.client.Connect(); err != nil {
		c.emit(platform.ErrorEvent{Reason: platform.ReasonTransient, Message: err.Error()})
	}
}

func (c *conn) emit(ev platform.Event) {
	select {
	case c.out <- ev:
	default:
		// Drop rather than deadlock the protocol loop; the coordinator
		// reconciles from current state on the next tick anyway.
	}
}
