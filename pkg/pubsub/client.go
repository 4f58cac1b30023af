// Package pubsub wraps the Pub/Sub v2 client for the shop's two event
// streams: sales and notifications.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

// Role decides which resources a client verifies on startup and on Ping.
type Role int

const (
	// Publisher checks that every topic exists.
	Publisher Role = iota
	// Subscriber checks that every subscription exists.
	Subscriber
)

func (r Role) String() string {
	if r == Subscriber {
		return "subscriber"
	}
	return "publisher"
}

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
	errNothingToCheck    = errors.New("no pubsub resources configured")
)

type Client struct {
	client    *pubsub.Client
	projectID string
	role      Role
	cfg       config.PubSubConfig
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	var opts []option.ClientOption
	if gcp.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	} else if gcp.ApplicationCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	ps, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: ps, projectID: projectID, role: role, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project_id": projectID,
			"role":       role.String(),
		}), "pubsub client initialized")
	}
	return c, nil
}

// Ping confirms the resources for the client's role exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	names := c.resources()
	if len(names) == 0 {
		return errNothingToCheck
	}
	for _, name := range names {
		if err := c.check(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) resources() []string {
	var raw []string
	var kind string
	if c.role == Subscriber {
		kind = "subscriptions"
		raw = []string{c.cfg.SalesSubscription, c.cfg.SalesMailSubscription, c.cfg.NotificationSubscription}
	} else {
		kind = "topics"
		raw = []string{c.cfg.SalesTopic, c.cfg.NotificationTopic}
	}
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		if full := resourceName(c.projectID, kind, name); full != "" {
			out = append(out, full)
		}
	}
	return out
}

func (c *Client) check(ctx context.Context, name string) error {
	var err error
	if strings.Contains(name, "/subscriptions/") {
		_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
	} else {
		_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	}
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s does not exist", name)
	case err != nil:
		return fmt.Errorf("checking %s: %w", name, err)
	}
	return nil
}

// Subscription returns a receiver for a subscription id or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, "subscriptions", name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// Publisher returns a sender for a topic id or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, "topics", name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands an id to projects/<project>/<kind>/<id>. Names that are
// already fully qualified pass through.
func resourceName(projectID, kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + kind + "/" + name
}
