package http

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestHTTP_Listen(t *testing.T) {
	proxy := NewHTTP("127.0.0.1:0")
	go proxy.Listen()

	waitAddr(t, proxy)

	defer proxy.Stop()

	proxy.RegisterHandler("/fake", fakeHandler)

	res, err := http.Get("http://" + proxy.GetAddr().String() + "/fake")
	require.NoError(t, err)

	output, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, "hello", string(output))
	require.NotEmpty(t, res.Header.Get("X-Request-Id"))
}

func TestHTTP_Listen_RequestID(t *testing.T) {
	proxy := NewHTTP("127.0.0.1:0")
	go proxy.Listen()

	waitAddr(t, proxy)

	defer proxy.Stop()

	proxy.RegisterHandler("/fake", fakeHandler)

	req, err := http.NewRequest(http.MethodGet,
		"http://"+proxy.GetAddr().String()+"/fake", nil)
	require.NoError(t, err)

	req.Header.Set("X-Request-Id", "abc123")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer res.Body.Close()

	require.Equal(t, "abc123", res.Header.Get("X-Request-Id"))
}

func TestHTTP_Listen_BadAddr(t *testing.T) {
	proxy := NewHTTP("bad://xx")

	out := new(bytes.Buffer)
	proxy.logger = zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: true})

	done := make(chan struct{})

	go func() {
		defer func() {
			res := recover()
			require.NotNil(t, res)
			close(done)
		}()

		proxy.Listen()
	}()

	<-done

	require.Regexp(t, "failed to listen on 'bad://xx':", out.String())
}

func TestHTTP_GetAddr(t *testing.T) {
	proxy := NewHTTP("127.0.0.1:0")

	require.Nil(t, proxy.GetAddr())

	go proxy.Listen()

	waitAddr(t, proxy)

	defer proxy.Stop()

	require.NotEmpty(t, proxy.GetAddr().String())
}

// -----------------------------------------------------------------------------
// Utility functions

func waitAddr(t *testing.T, proxy *HTTP) {
	t.Helper()

	for i := 0; i < 50; i++ {
		if proxy.GetAddr() != nil {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("proxy did not start")
}

func fakeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("hello"))
}
