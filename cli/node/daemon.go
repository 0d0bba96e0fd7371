// This file contains the client and the daemon, which talk to each other
// through a UNIX socket.
//
// Documentation Last Review: 11.06.2026
//

package node

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/votela/votela"
	"github.com/votela/votela/cli"
	"golang.org/x/xerrors"
)

const ioTimeout = 30 * time.Second

// sockFileName is the name of the socket file inside the config folder.
const sockFileName = "daemon.sock"

// reply is the framing between the client and the daemon. The daemon streams
// one reply per output line, and a reply carrying an error terminates the
// command on the client side.
type reply struct {
	Err   bool
	Value string
}

// socketClient connects to the daemon socket to deliver one command.
//
// - implements node.Client
type socketClient struct {
	sock        string
	out         io.Writer
	dialTimeout time.Duration
	dial        func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// Send implements node.Client. It opens a connection, sends the data and
// copies the replies to the output until the daemon closes the connection or
// reports an error.
func (c socketClient) Send(data []byte) error {
	conn, err := c.dial("unix", c.sock, c.dialTimeout)
	if err != nil {
		return xerrors.Errorf("failed to dial daemon: %v", err)
	}

	defer conn.Close()

	_, err = conn.Write(data)
	if err != nil {
		return xerrors.Errorf("failed to send command: %v", err)
	}

	dec := json.NewDecoder(conn)

	for {
		var rep reply

		err = dec.Decode(&rep)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return xerrors.Errorf("failed to decode reply: %v", err)
		}

		if rep.Err {
			return xerrors.New(rep.Value)
		}

		fmt.Fprintln(c.out, rep.Value)
	}
}

// socketDaemon executes the commands that clients deliver over the UNIX
// socket. The socket file inherits the permissions of the config folder, so
// the filesystem decides who may command the node.
//
// - implements node.Daemon
type socketDaemon struct {
	wg sync.WaitGroup

	logger      zerolog.Logger
	sock        string
	injector    Injector
	actions     *actionRegistry
	quit        chan struct{}
	readTimeout time.Duration
	listen      func(network, addr string) (net.Listener, error)
}

// Listen implements node.Daemon. It binds the socket file and accepts
// connections until the daemon is closed.
func (d *socketDaemon) Listen() error {
	socket, err := d.listen("unix", d.sock)
	if err != nil {
		return xerrors.Errorf("failed to bind socket: %v", err)
	}

	d.wg.Add(2)

	go func() {
		defer d.wg.Done()

		<-d.quit
		socket.Close()
	}()

	go func() {
		defer d.wg.Done()

		for {
			conn, err := socket.Accept()
			if err != nil {
				select {
				case <-d.quit:
				default:
					votela.Logger.Err(err).Msg("daemon stopped accepting connections")
				}
				return
			}

			go d.serve(conn)
		}
	}()

	return nil
}

func (d *socketDaemon) serve(conn net.Conn) {
	defer conn.Close()

	d.logger.Trace().Msg("serving a client connection")

	conn.SetReadDeadline(time.Now().Add(d.readTimeout))

	id, fset, err := readCommand(conn)
	if err == io.EOF {
		// A probe connection closed without sending anything, which happens
		// when testing whether the daemon is up.
		return
	}
	if err != nil {
		d.replyErr(conn, err)
		return
	}

	d.logger.Debug().
		Uint16("command", id).
		Str("flags", fmt.Sprintf("%v", fset)).
		Msg("daemon received a command")

	action := d.actions.Get(id)
	if action == nil {
		d.replyErr(conn, xerrors.Errorf("unknown command '%d'", id))
		return
	}

	err = action.Execute(Context{
		Injector: d.injector,
		Flags:    fset,
		Out:      newReplyWriter(conn),
	})
	if err != nil {
		d.replyErr(conn, xerrors.Errorf("command error: %v", err))
	}
}

// readCommand parses a command frame, made of the action identifier over 2
// bytes followed by the JSON encoded flag set. An io.EOF is returned as is
// when the connection closed before sending a header.
func readCommand(conn net.Conn) (uint16, FlagSet, error) {
	header := make([]byte, 2)

	_, err := io.ReadFull(conn, header)
	if err == io.EOF {
		return 0, nil, err
	}
	if err != nil {
		return 0, nil, xerrors.Errorf("malformed command header: %v", err)
	}

	fset := make(FlagSet)

	err = json.NewDecoder(conn).Decode(&fset)
	if err != nil {
		return 0, nil, xerrors.Errorf("failed to decode flag set: %v", err)
	}

	return binary.LittleEndian.Uint16(header), fset, nil
}

func (d *socketDaemon) replyErr(conn net.Conn, err error) {
	d.logger.Debug().Err(err).Msg("replying with an error")

	err = json.NewEncoder(conn).Encode(reply{Err: true, Value: err.Error()})
	if err != nil {
		d.logger.Warn().Err(err).Msg("could not reply to the client")
	}
}

// Close implements node.Daemon. It closes the daemon and waits for the go
// routines to return.
func (d *socketDaemon) Close() error {
	close(d.quit)
	d.wg.Wait()

	return nil
}

// replyWriter wraps everything an action writes into reply frames, so that
// the client can print the output as it is produced.
//
// - implements io.Writer
type replyWriter struct {
	enc *json.Encoder
}

func newReplyWriter(w io.Writer) *replyWriter {
	return &replyWriter{
		enc: json.NewEncoder(w),
	}
}

// Write implements io.Writer. It wraps the data into a reply frame written to
// the underlying writer. It reports the full length of the data on success.
func (w *replyWriter) Write(data []byte) (int, error) {
	err := w.enc.Encode(reply{Value: string(data)})
	if err != nil {
		return 0, xerrors.Errorf("failed to pack reply: %v", err)
	}

	return len(data), nil
}

// socketFactory creates the daemon of a node and the clients that command it,
// both bound to the socket file of the config folder.
//
// - implements node.DaemonFactory
type socketFactory struct {
	injector Injector
	actions  *actionRegistry
	out      io.Writer
}

// ClientFromContext implements node.DaemonFactory. It creates a client that
// will dial the socket of the config folder in the flags.
func (f socketFactory) ClientFromContext(ctx cli.Flags) (Client, error) {
	client := socketClient{
		sock:        f.getSocketPath(ctx),
		out:         f.out,
		dialTimeout: ioTimeout,
		dial:        net.DialTimeout,
	}

	return client, nil
}

// DaemonFromContext implements node.DaemonFactory. It creates the daemon
// listening on the socket of the config folder in the flags.
func (f socketFactory) DaemonFromContext(ctx cli.Flags) (Daemon, error) {
	sock := f.getSocketPath(ctx)

	daemon := &socketDaemon{
		logger:      votela.Logger.With().Str("daemon", sock).Logger(),
		sock:        sock,
		injector:    f.injector,
		actions:     f.actions,
		quit:        make(chan struct{}),
		readTimeout: ioTimeout,
		listen:      net.Listen,
	}

	return daemon, nil
}

func (f socketFactory) getSocketPath(ctx cli.Flags) string {
	return filepath.Join(ctx.Path("config"), sockFileName)
}
