// Package gateway talks to the IM protocol process through RabbitMQ.
//
// The protocol process (login, sessions, wire encoding) publishes inbound events
// on a topic exchange and executes the actions and queries the bridge publishes back.
// Queries use RabbitMQ direct reply-to, so no reply queue has to be declared.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"im-bridge/domain"
	"im-bridge/domain/event"
	"im-bridge/domain/message"
	imerrors "im-bridge/errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type publishFunc func(ctx context.Context, routingKey string, msg amqp.Publishing) error

// Client is the IM collaborator backed by RabbitMQ. It implements contract.IMClient
// and contract.EventSource. Run owns the connection; it is meant to be supervised
// so that a lost connection is redialed on restart.
type Client struct {
	cfg    Config
	log    *slog.Logger
	events chan event.Event

	mu      sync.RWMutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	publish publishFunc

	pendingMu sync.Mutex
	pending   map[string]chan ReplyEnvelope
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:     cfg,
		log:     log,
		events:  make(chan event.Event),
		pending: make(map[string]chan ReplyEnvelope),
	}
}

// Events never closes: it survives reconnections.
// The channel is unbuffered: a delivery is acked only once a reader has taken the event,
// so nothing acked can be left behind in a buffer at shutdown. Prefetch does the buffering.
func (c *Client) Events() <-chan event.Event {
	return c.events
}

// Run connects, declares the topology and consumes until ctx is done or the connection drops.
// On ctx cancellation the connection stays open so in-flight requests can still be answered;
// Close releases it.
func (c *Client) Run(ctx context.Context) error {
	c.Close()

	host := ""
	if u, err := url.Parse(c.cfg.URL); err == nil {
		host = u.Host
	}
	c.log.Info("Connecting to IM gateway", "host", host, "exchange", c.cfg.Exchange)

	conn, err := c.cfg.Dialer(ctx, c.cfg.URL)
	if err != nil {
		return fmt.Errorf("%w: dial: %v", imerrors.ErrGatewayUnavailable, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: open channel: %v", imerrors.ErrGatewayUnavailable, err)
	}
	if err = c.declareTopology(ch); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: topology: %v", imerrors.ErrGatewayUnavailable, err)
	}

	// Direct reply-to requires publishing queries on the channel that consumes the replies.
	replies, err := ch.Consume(directReplyTo, "", true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: consume replies: %v", imerrors.ErrGatewayUnavailable, err)
	}

	eventCh, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: open event channel: %v", imerrors.ErrGatewayUnavailable, err)
	}
	if err = eventCh.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: qos: %v", imerrors.ErrGatewayUnavailable, err)
	}
	consumerTag := "im-bridge-" + uuid.NewString()
	deliveries, err := eventCh.Consume(c.cfg.EventQueue, consumerTag, false, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: consume events: %v", imerrors.ErrGatewayUnavailable, err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	// Replies keep flowing after ctx is done, until the connection itself is closed.
	go c.routeReplies(replies)

	c.mu.Lock()
	c.conn, c.ch = conn, ch
	c.publish = c.channelPublisher(ch)
	c.mu.Unlock()
	c.log.Info("IM gateway ready", "queue", c.cfg.EventQueue, "prefetch", c.cfg.Prefetch)

	for {
		select {
		case <-ctx.Done():
			_ = eventCh.Cancel(consumerTag, false)
			c.log.Debug("Context done, event consumer canceled")
			return nil

		case amqpErr, ok := <-closed:
			if !ok {
				amqpErr = &amqp.Error{Reason: "connection closed"}
			}
			c.failPending()
			return fmt.Errorf("%w: %v", imerrors.ErrGatewayUnavailable, amqpErr)

		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: event consumer closed", imerrors.ErrGatewayUnavailable)
			}
			if err := c.consume(ctx, d); err != nil {
				return err
			}
		}
	}
}

func (c *Client) declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(c.cfg.EventQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.QueueBind(c.cfg.EventQueue, eventRoutingPrefix+"#", c.cfg.Exchange, false, nil)
}

// consume hands one delivery to the reader of Events. Poison is acked and dropped.
// A delivery nobody took before ctx is done goes back to the queue.
func (c *Client) consume(ctx context.Context, d amqp.Delivery) error {
	evt, err := DecodeEvent(d.Body)
	if errors.Is(err, ErrPoison) {
		c.log.Warn("Dropping undecodable gateway event", "routing_key", d.RoutingKey, "message_id", d.MessageId, "error", err)
		_ = d.Ack(false)
		return nil
	}
	select {
	case c.events <- evt:
		_ = d.Ack(false)
		return nil
	case <-ctx.Done():
		_ = d.Nack(false, true)
		return nil
	}
}

func (c *Client) channelPublisher(ch *amqp.Channel) publishFunc {
	return func(ctx context.Context, routingKey string, msg amqp.Publishing) error {
		return ch.PublishWithContext(ctx, c.cfg.Exchange, routingKey, false, false, msg)
	}
}

// Connected reports whether the gateway connection is usable, for health probes.
func (c *Client) Connected(context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil || c.conn.IsClosed() {
		return imerrors.ErrGatewayUnavailable
	}
	return nil
}

// Close releases the connection. Pending queries fail immediately.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn, c.ch, c.publish = nil, nil, nil
	c.mu.Unlock()
	if conn != nil && !conn.IsClosed() {
		_ = conn.Close()
	}
	c.failPending()
}

func (c *Client) send(ctx context.Context, kind string, data any, replyTo, correlationID string) error {
	c.mu.RLock()
	publish := c.publish
	c.mu.RUnlock()
	if publish == nil {
		return imerrors.ErrGatewayUnavailable
	}

	env := Envelope{
		Meta: Meta{ID: uuid.NewString(), Time: time.Now().UTC(), Type: kind},
		Data: data,
	}
	if correlationID != "" {
		env.Meta.CorrelationID = &correlationID
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	routingKey := actionRoutingPrefix + kind
	if replyTo != "" {
		routingKey = queryRoutingPrefix + kind
	}
	return publish(ctx, routingKey, amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		MessageId:     env.Meta.ID,
		CorrelationId: correlationID,
		ReplyTo:       replyTo,
		Type:          kind,
		Timestamp:     env.Meta.Time,
		AppId:         c.cfg.AppID,
	})
}

// query publishes a request and waits for the matching reply, decoded into out.
func (c *Client) query(ctx context.Context, kind string, data any, out any) error {
	id := uuid.NewString()
	reply := make(chan ReplyEnvelope, 1)
	c.pendingMu.Lock()
	c.pending[id] = reply
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.send(ctx, kind, data, directReplyTo, id); err != nil {
		return err
	}

	timer := time.NewTimer(c.cfg.RPCTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: %s after %s", imerrors.ErrRPCTimeout, kind, c.cfg.RPCTimeout)
	case env, ok := <-reply:
		if !ok {
			return imerrors.ErrGatewayUnavailable
		}
		if env.Error != "" {
			return fmt.Errorf("%w: %s: %s", imerrors.ErrRPCFailed, kind, env.Error)
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: %s reply: %v", imerrors.ErrInvalidPayload, kind, err)
		}
		return nil
	}
}

func (c *Client) routeReplies(replies <-chan amqp.Delivery) {
	for d := range replies {
		c.resolve(d.CorrelationId, d.Body)
	}
}

// resolve routes a reply to the query waiting for it. Late or unknown replies are dropped.
func (c *Client) resolve(correlationID string, body []byte) {
	var env ReplyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.log.Warn("Dropping undecodable gateway reply", "correlation_id", correlationID, "error", err)
		return
	}
	c.pendingMu.Lock()
	reply, ok := c.pending[correlationID]
	if ok {
		delete(c.pending, correlationID)
	}
	c.pendingMu.Unlock()
	if !ok {
		c.log.Debug("Reply without a waiting query", "correlation_id", correlationID)
		return
	}
	reply <- env
}

func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, reply := range c.pending {
		close(reply)
		delete(c.pending, id)
	}
}

func (c *Client) SendMessage(ctx context.Context, dest domain.Destination, chain message.Chain) error {
	return c.send(ctx, actionSendMessage, sendMessagePayload{
		Destination: toDestinationPayload(dest),
		Chain:       chain,
	}, "", "")
}

func (c *Client) AcceptFriendRequest(ctx context.Context, req event.NewFriendRequest) error {
	return c.send(ctx, actionAcceptFriendRequest, acceptFriendRequestPayload{
		RequestID: req.RequestID,
		Requester: req.RequesterID,
	}, "", "")
}

func (c *Client) GetGroupAdminList(ctx context.Context, group domain.Group) ([]string, error) {
	var out adminListReply
	err := c.query(ctx, queryGroupAdminList, groupQueryPayload{Group: toGroupPayload(group)}, &out)
	return out.Members, err
}

func (c *Client) GetGroupMemberInfo(ctx context.Context, group domain.Group, memberID string) (domain.MemberInfo, error) {
	var out memberInfoReply
	err := c.query(ctx, queryGroupMemberInfo, groupQueryPayload{Group: toGroupPayload(group), Member: memberID}, &out)
	if err != nil {
		return domain.MemberInfo{}, err
	}
	return domain.MemberInfo{Nickname: out.Nickname, CardName: out.Card}, nil
}
