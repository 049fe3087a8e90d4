package webhookpubsub

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/golang-jwt/jwt"
)

// maxReplySize bounds how much of an endpoint reply ends up in errors.
const maxReplySize = 512

type client struct {
	*http.Client
}

func newHTTPClient(requestTimeout time.Duration) *client {
	return &client{&http.Client{Timeout: requestTimeout}}
}

// deliver posts the payload to the subscription endpoint. Any non 2xx reply
// is an error.
func (c *client) deliver(sub Subscription, payload string) error {
	req, err := http.NewRequest(
		http.MethodPost, sub.Endpoint, strings.NewReader(payload),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if sub.IsSecured() {
		token, err := signToken(sub)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		//nolint
		reply, _ := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
		return fmt.Errorf(
			"%w: webhook %s replied %d %s", ports.ErrExternalService,
			sub.Endpoint, resp.StatusCode, strings.TrimSpace(string(reply)),
		)
	}
	//nolint
	io.Copy(io.Discard, resp.Body)
	return nil
}

func signToken(sub Subscription) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:  sub.Event,
		IssuedAt: time.Now().Unix(),
	})
	return token.SignedString([]byte(sub.Secret))
}
