// Package zkclient wraps a ZooKeeper connection behind the narrow
// queue.Client interface, the way the coordination-service API spec §6
// describes is ZooKeeper's API verbatim.
package zkclient

import (
	"context"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/harshithgowdakt/mtqueue/internal/queue"
)

// Client adapts a *zk.Conn to queue.Client and queue.NodeRemover.
type Client struct {
	conn *zk.Conn
	log  *logrus.Entry
}

// Connect dials the given ensemble and blocks until the session is
// established (or sessionTimeout elapses), mirroring the synchronous
// connect helper most ZooKeeper client wrappers in the wild provide on top
// of zk.Connect's event-channel-based handshake.
func Connect(servers []string, sessionTimeout time.Duration) (*Client, error) {
	conn, events, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to zookeeper")
	}

	c := &Client{conn: conn, log: logrus.WithField("pkg", "zkclient")}

	deadline := time.After(sessionTimeout)
	for {
		select {
		case ev := <-events:
			if ev.State == zk.StateHasSession {
				return c, nil
			}
		case <-deadline:
			conn.Close()
			return nil, errors.New("zookeeper: session not established before timeout")
		}
	}
}

// Close closes the underlying session.
func (c *Client) Close() { c.conn.Close() }

func (c *Client) Get(ctx context.Context, path string) ([]byte, queue.Stat, error) {
	data, stat, err := c.conn.Get(path)
	if err != nil {
		return nil, queue.Stat{}, wrapErr(path, err)
	}
	return data, queue.Stat{Version: stat.Version}, nil
}

func (c *Client) Set(ctx context.Context, path string, data []byte) error {
	_, err := c.conn.Set(path, data, -1)
	if err != nil {
		return wrapErr(path, err)
	}
	return nil
}

func (c *Client) GetChildren(ctx context.Context, path string, watch chan<- struct{}) ([]string, error) {
	if watch == nil {
		children, _, err := c.conn.Children(path)
		if err != nil {
			return nil, wrapErr(path, err)
		}
		return children, nil
	}

	children, _, events, err := c.conn.ChildrenW(path)
	if err != nil {
		return nil, wrapErr(path, err)
	}
	go func() {
		<-events
		select {
		case watch <- struct{}{}:
		default:
		}
	}()
	return children, nil
}

func (c *Client) TryGet(ctx context.Context, path string) ([]byte, queue.Stat, bool, error) {
	data, stat, err := c.conn.Get(path)
	if err == zk.ErrNoNode {
		return nil, queue.Stat{}, false, nil
	}
	if err != nil {
		return nil, queue.Stat{}, false, wrapErr(path, err)
	}
	return data, queue.Stat{Version: stat.Version}, true, nil
}

// TryRemove deletes a node, tolerating its absence. Satisfies both
// queue.NodeRemover and queue.Client.
func (c *Client) TryRemove(path string) error {
	err := c.conn.Delete(path, -1)
	if err == nil || err == zk.ErrNoNode {
		return nil
	}
	return wrapErr(path, err)
}

func (c *Client) Multi(ctx context.Context, ops []queue.Op) ([]queue.MultiResult, error) {
	zkOps := make([]interface{}, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case queue.OpCreate:
			flags := int32(0)
			if op.Sequence {
				flags = zk.FlagSequence
			}
			zkOps = append(zkOps, &zk.CreateRequest{
				Path:  op.Path,
				Data:  op.Data,
				Acl:   zk.WorldACL(zk.PermAll),
				Flags: flags,
			})
		case queue.OpSet:
			zkOps = append(zkOps, &zk.SetDataRequest{
				Path:    op.Path,
				Data:    op.Data,
				Version: -1,
			})
		}
	}

	responses, err := c.conn.Multi(zkOps...)
	if err != nil {
		return nil, errors.Wrap(err, "zookeeper multi")
	}

	results := make([]queue.MultiResult, len(responses))
	for i, r := range responses {
		results[i] = queue.MultiResult{Path: r.String}
	}
	return results, nil
}

func (c *Client) AsyncGet(ctx context.Context, path string) <-chan queue.AsyncGetResult {
	ch := make(chan queue.AsyncGetResult, 1)
	go func() {
		data, _, err := c.Get(ctx, path)
		ch <- queue.AsyncGetResult{Path: path, Data: data, Err: err}
	}()
	return ch
}

func (c *Client) AsyncGetChildren(ctx context.Context, path string) <-chan queue.AsyncChildrenResult {
	ch := make(chan queue.AsyncChildrenResult, 1)
	go func() {
		children, err := c.GetChildren(ctx, path, nil)
		ch <- queue.AsyncChildrenResult{Path: path, Children: children, Err: err}
	}()
	return ch
}

// CreatePersistent creates path (and parents, best-effort) as a permanent
// node if it doesn't already exist; used at startup to lay down a table's
// znode tree before the puller and mutation tracker start reading it.
func (c *Client) CreatePersistent(path string, data []byte) error {
	_, err := c.conn.Create(path, data, 0, zk.WorldACL(zk.PermAll))
	if err == zk.ErrNodeExists {
		return nil
	}
	return wrapErr(path, err)
}

func wrapErr(path string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "zookeeper path %s", path)
}
