package redis

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fatimetou23083/CacheFlow/cache"
)

// Store implements cache.Store against Redis using the RESP protocol over
// a pooled set of connections. Connections are checked out for exactly
// one command and returned on every exit path.
type Store struct {
	opts   Options
	dialFn dialFunc
	pool   chan *clientConn
}

type dialFunc func(context.Context, Options) (net.Conn, error)

// NewStore builds a Redis-backed store.
func NewStore(opts Options) *Store {
	cfg := opts.withDefaults()
	return &Store{opts: cfg, dialFn: defaultDial, pool: make(chan *clientConn, cfg.PoolSize)}
}

// WithDial allows overriding the dialer (useful for tests/mocks).
func (s *Store) WithDial(fn dialFunc) {
	if fn != nil {
		s.dialFn = fn
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	var payload []byte
	err := s.withConn(ctx, func(conn *clientConn) error {
		resp, err := s.command(conn, "GET", key)
		if err != nil {
			return err
		}
		switch v := resp.(type) {
		case nil:
			return cache.ErrNotFound
		case []byte:
			payload = append([]byte(nil), v...)
			return nil
		default:
			return fmt.Errorf("redis: unexpected GET response %T", resp)
		}
	})

	return payload, err
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	return s.withConn(ctx, func(conn *clientConn) error {
		resp, err := s.command(conn, setArgs(key, value, ttl, false)...)
		if err != nil {
			return err
		}
		if msg, ok := resp.(string); ok && strings.EqualFold(msg, "OK") {
			return nil
		}
		return fmt.Errorf("redis: SET failed: %v", resp)
	})
}

// SetIfAbsent stores the value only when the key does not exist yet and
// reports whether the write happened.
func (s *Store) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}

	var stored bool
	err := s.withConn(ctx, func(conn *clientConn) error {
		resp, err := s.command(conn, setArgs(key, value, ttl, true)...)
		if err != nil {
			return err
		}
		switch v := resp.(type) {
		case nil:
			stored = false
			return nil
		case string:
			if strings.EqualFold(v, "OK") {
				stored = true
				return nil
			}
		}
		return fmt.Errorf("redis: SET NX failed: %v", resp)
	})
	return stored, err
}

// Delete removes keys with the blocking DEL command and returns how many
// existed. Use Delete where deletions must show up in store audit logs
// the moment the call returns.
func (s *Store) Delete(ctx context.Context, keys ...string) (int64, error) {
	return s.intCommand(ctx, "DEL", keys...)
}

// Unlink removes keys with the asynchronous UNLINK command; the server
// reclaims the memory in the background.
func (s *Store) Unlink(ctx context.Context, keys ...string) (int64, error) {
	return s.intCommand(ctx, "UNLINK", keys...)
}

// Keys enumerates the keys matching a glob pattern.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	var keys []string
	err := s.withConn(ctx, func(conn *clientConn) error {
		resp, err := s.command(conn, "KEYS", pattern)
		if err != nil {
			return err
		}
		arr, ok := resp.([]any)
		if !ok {
			return fmt.Errorf("redis: unexpected KEYS response %T", resp)
		}
		keys = make([]string, 0, len(arr))
		for _, item := range arr {
			b, ok := item.([]byte)
			if !ok {
				return fmt.Errorf("redis: unexpected KEYS element %T", item)
			}
			keys = append(keys, string(b))
		}
		return nil
	})
	return keys, err
}

// Publish sends payload on the named channel and returns the number of
// subscribers that received it.
func (s *Store) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	return s.intCommand(ctx, "PUBLISH", channel, string(payload))
}

// Ping verifies the store answers commands; it is the connectivity probe
// behind the introspection endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	return s.withConn(ctx, func(conn *clientConn) error {
		resp, err := s.command(conn, "PING")
		if err != nil {
			return err
		}
		if msg, ok := resp.(string); ok && strings.EqualFold(msg, "PONG") {
			return nil
		}
		return fmt.Errorf("redis: PING failed: %v", resp)
	})
}

func (s *Store) intCommand(ctx context.Context, name string, args ...string) (int64, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	if len(args) == 0 {
		return 0, nil
	}

	var n int64
	err := s.withConn(ctx, func(conn *clientConn) error {
		resp, err := s.command(conn, append([]string{name}, args...)...)
		if err != nil {
			return err
		}
		v, ok := resp.(int64)
		if !ok {
			return fmt.Errorf("redis: %s failed: %v", name, resp)
		}
		n = v
		return nil
	})
	return n, err
}

func setArgs(key string, value []byte, ttl time.Duration, nx bool) []string {
	args := []string{"SET", key, string(value)}
	if ttl > 0 {
		ms := ttl.Milliseconds()
		if ms == 0 {
			ms = 1
		}
		args = append(args, "PX", strconv.FormatInt(ms, 10))
	}
	if nx {
		args = append(args, "NX")
	}
	return args
}

// command sends one command and reads its reply on an already-acquired
// connection.
func (s *Store) command(conn *clientConn, parts ...string) (any, error) {
	if err := s.send(conn, parts...); err != nil {
		return nil, err
	}
	return s.read(conn)
}

func (s *Store) withConn(ctx context.Context, fn func(*clientConn) error) error {
	conn, err := s.acquireConn(ctx)
	if err != nil {
		return err
	}
	broken := false
	defer func() {
		s.releaseConn(conn, broken)
	}()
	if err := fn(conn); err != nil {
		if isConnError(err) {
			broken = true
		}
		return err
	}
	return nil
}

func isConnError(err error) bool {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (s *Store) dial(ctx context.Context) (net.Conn, error) {
	if s.dialFn == nil {
		s.dialFn = defaultDial
	}
	return s.dialFn(ctx, s.opts)
}

func (s *Store) handshake(conn net.Conn, reader *bufio.Reader) error {
	if s.opts.Password != "" {
		if err := s.sendRaw(conn, "AUTH", s.opts.Password); err != nil {
			return err
		}
		if err := s.expectOK(reader); err != nil {
			return err
		}
	}
	if s.opts.DB > 0 {
		if err := s.sendRaw(conn, "SELECT", strconv.Itoa(s.opts.DB)); err != nil {
			return err
		}
		if err := s.expectOK(reader); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) expectOK(reader *bufio.Reader) error {
	resp, err := decodeRESP(reader)
	if err != nil {
		return err
	}
	if msg, ok := resp.(string); ok && strings.EqualFold(msg, "OK") {
		return nil
	}
	return fmt.Errorf("redis: expected OK, got %v", resp)
}

func (s *Store) send(conn *clientConn, parts ...string) error {
	if err := applyDeadline(conn.SetWriteDeadline, s.opts.WriteTimeout); err != nil {
		return err
	}
	payload := buildCommand(parts...)
	_, err := conn.Write(payload)
	return err
}

func (s *Store) read(conn *clientConn) (any, error) {
	if err := applyDeadline(conn.SetReadDeadline, s.opts.ReadTimeout); err != nil {
		return nil, err
	}
	return decodeRESP(conn.reader)
}

type clientConn struct {
	net.Conn
	reader *bufio.Reader
}

func (s *Store) acquireConn(ctx context.Context) (*clientConn, error) {
	select {
	case conn := <-s.pool:
		return conn, nil
	default:
		return s.newConn(ctx)
	}
}

func (s *Store) releaseConn(conn *clientConn, broken bool) {
	if conn == nil {
		return
	}
	if broken {
		_ = conn.Close()
		return
	}
	select {
	case s.pool <- conn:
	default:
		_ = conn.Close()
	}
}

func (s *Store) newConn(ctx context.Context) (*clientConn, error) {
	nc, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	reader := bufio.NewReader(nc)
	if err := s.handshake(nc, reader); err != nil {
		_ = nc.Close()
		return nil, err
	}
	return &clientConn{Conn: nc, reader: reader}, nil
}

// sendRaw is used during handshake before the buffered reader is available.
func (s *Store) sendRaw(conn net.Conn, parts ...string) error {
	if err := applyDeadline(conn.SetWriteDeadline, s.opts.WriteTimeout); err != nil {
		return err
	}
	payload := buildCommand(parts...)
	_, err := conn.Write(payload)
	return err
}

func defaultDial(ctx context.Context, opts Options) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: opts.DialTimeout}
	return dialer.DialContext(ctx, "tcp", opts.Addr)
}

func buildCommand(parts ...string) []byte {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "*%d\r\n", len(parts))
	for _, part := range parts {
		fmt.Fprintf(buf, "$%d\r\n%s\r\n", len(part), part)
	}
	return buf.Bytes()
}

func decodeRESP(r *bufio.Reader) (any, error) {
	prefix, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimSuffix(line, "\r\n")
	switch prefix {
	case '+':
		return line, nil
	case '-':
		return nil, errors.New(line)
	case ':':
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case '$':
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, err
		}
		if n == -1 {
			return nil, nil
		}
		data := make([]byte, n)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		if err := consumeCRLF(r); err != nil {
			return nil, err
		}
		return data, nil
	case '*':
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, err
		}
		if n == -1 {
			return nil, nil
		}
		arr := make([]any, n)
		for i := 0; i < int(n); i++ {
			val, err := decodeRESP(r)
			if err != nil {
				return nil, err
			}
			arr[i] = val
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("redis: unsupported RESP prefix %q", prefix)
	}
}

func consumeCRLF(r *bufio.Reader) error {
	b1, err := r.ReadByte()
	if err != nil {
		return err
	}
	b2, err := r.ReadByte()
	if err != nil {
		return err
	}
	if b1 != '\r' || b2 != '\n' {
		return errors.New("redis: malformed RESP terminator")
	}
	return nil
}

func applyDeadline(setter func(time.Time) error, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	return setter(time.Now().Add(timeout))
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
