package etcd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Meesho/BharatMLStack/onscene/pkg/configs"
	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	connectionTimeout = 30 * time.Second
	watchRestartDelay = 5 * time.Second
)

// KV is the read side used by config readers.
type KV interface {
	// Get returns the value at key and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

type Client struct {
	conn   *clientv3.Client
	logger zerolog.Logger
}

func New(configs *configs.AppConfigs, logger zerolog.Logger) (*Client, error) {
	if configs.Configs.ETCD_SERVER == "" {
		return nil, fmt.Errorf("ETCD_SERVER is not set")
	}
	conn, err := clientv3.New(clientv3.Config{
		Endpoints:           strings.Split(configs.Configs.ETCD_SERVER, ","),
		Username:            configs.Configs.ETCD_USERNAME,
		Password:            configs.Configs.ETCD_PASSWORD,
		DialTimeout:         connectionTimeout,
		DialKeepAliveTime:   connectionTimeout,
		PermitWithoutStream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	return &Client{conn: conn, logger: logger}, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := c.conn.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	return resp.Kvs[0].Value, true, nil
}

// WatchPrefix calls callback after every batch of changes under prefix until ctx is done.
// The watch is re-established if it breaks or the callback panics.
func (c *Client) WatchPrefix(ctx context.Context, prefix string, callback func(ctx context.Context) error) {
	go func() {
		for ctx.Err() == nil {
			c.watchOnce(ctx, prefix, callback)
			select {
			case <-ctx.Done():
				return
			case <-time.After(watchRestartDelay):
			}
		}
	}()
}

func (c *Client) watchOnce(ctx context.Context, prefix string, callback func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Msgf("panic in etcd watch for %s: %v", prefix, r)
		}
	}()
	for watchResp := range c.conn.Watch(ctx, prefix, clientv3.WithPrefix()) {
		if err := watchResp.Err(); err != nil {
			c.logger.Error().Err(err).Str("prefix", prefix).Msg("etcd watch failed")
			return
		}
		if len(watchResp.Events) == 0 {
			continue
		}
		c.logger.Info().Str("prefix", prefix).Int("events", len(watchResp.Events)).Msg("etcd change observed")
		if err := callback(ctx); err != nil {
			c.logger.Error().Err(err).Str("prefix", prefix).Msg("unable to execute watch callback")
		}
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
