package docserver

import (
	"context"
	"fmt"
	"net"

	"github.com/eigerco/ubjson/pkg/serialization"
	"github.com/eigerco/ubjson/pkg/serialization/codec"
	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

// Client is one session with a Server. It is not safe for concurrent use.
type Client struct {
	conn       net.Conn
	serializer *serialization.Serializer
	Server     PeerInfo
}

// Dial connects to the server at socketPath and performs the handshake.
func Dial(ctx context.Context, socketPath string, info PeerInfo) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, err
	}
	c := &Client{conn: conn, serializer: serialization.NewSerializer(codec.NewUBJSONCodec())}

	resp, err := c.roundTrip(ctx, NewMessage(info))
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	server, ok := resp.(PeerInfo)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %T during handshake", ErrUnexpectedMessage, resp)
	}
	c.Server = server
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(ctx context.Context, req *Message) (MessageChoice, error) {
	out, err := c.serializer.Encode(req)
	if err != nil {
		return nil, err
	}
	if err := WriteFrame(ctx, c.conn, out); err != nil {
		return nil, err
	}
	content, err := ReadFrame(ctx, c.conn)
	if err != nil {
		return nil, err
	}
	resp := &Message{}
	if err := c.serializer.Decode(content, resp); err != nil {
		return nil, err
	}
	if e, ok := resp.Get().(Error); ok {
		return nil, &RemoteError{Msg: string(e)}
	}
	return resp.Get(), nil
}

func (c *Client) expectOk(ctx context.Context, req MessageChoice) error {
	resp, err := c.roundTrip(ctx, NewMessage(req))
	if err != nil {
		return err
	}
	if _, ok := resp.(Ok); !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedMessage, resp)
	}
	return nil
}

func (c *Client) Put(ctx context.Context, key string, doc ubjson.Value) error {
	return c.expectOk(ctx, Put{Key: key, Document: doc})
}

func (c *Client) Get(ctx context.Context, key string) (ubjson.Value, error) {
	resp, err := c.roundTrip(ctx, NewMessage(Get(key)))
	if err != nil {
		return ubjson.Value{}, err
	}
	doc, ok := resp.(Document)
	if !ok {
		return ubjson.Value{}, fmt.Errorf("%w: %T", ErrUnexpectedMessage, resp)
	}
	return doc.Value, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.expectOk(ctx, Delete(key))
}

func (c *Client) Copy(ctx context.Context, from, to string) error {
	return c.expectOk(ctx, Copy{From: from, To: to})
}

func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	resp, err := c.roundTrip(ctx, NewMessage(List{Prefix: prefix}))
	if err != nil {
		return nil, err
	}
	keys, ok := resp.(Keys)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedMessage, resp)
	}
	return keys, nil
}
