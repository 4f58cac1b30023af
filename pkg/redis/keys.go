package redis

import "strings"

const namespace = "rs"

// Key joins parts under the service namespace, skipping blanks.
func Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

// IdempotencyKey holds a replayable response or a consumer's processed marker.
func (c *Client) IdempotencyKey(scope, id string) string { return Key("idempotency", scope, id) }

func (c *Client) RateLimitKey(scope string) string { return Key("rate_limit", scope) }

// AccessSessionKey holds the refresh token issued alongside an access token.
func (c *Client) AccessSessionKey(accessID string) string { return Key("session", "access", accessID) }

// StaffSessionsKey is the set of live access ids for one staff member.
func (c *Client) StaffSessionsKey(staffID string) string { return Key("session", "staff", staffID) }

func (c *Client) CartKey(staffID, sessionID string) string { return Key("cart", staffID, sessionID) }

// CheckoutKey holds the submission state of one staff member's cart session.
func (c *Client) CheckoutKey(staffID, sessionID string) string {
	return Key("checkout", staffID, sessionID)
}

func (c *Client) LockKey(name string) string { return Key("lock", name) }
