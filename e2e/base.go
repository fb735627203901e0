package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"messenger/auth"
	"messenger/domain"
	"messenger/infrastructure/grpcapi"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type BaseSuite struct {
	suite.Suite
	Config Config
	issuer *auth.TokenIssuer
}

// SetupSuite loads the environment and skips everything without a live server.
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if !s.Config.Live() {
		s.T().Skip("MESSENGER_HTTP_ADDR, MESSENGER_GRPC_ADDR and JWT_SECRET are required for e2e")
	}
	s.issuer = auth.NewTokenIssuer(s.Config.JWTSecret)
}

func (s *BaseSuite) header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// Token mints a bearer token the server accepts for userID.
func (s *BaseSuite) Token(userID domain.UserID) string {
	token, err := s.issuer.GenerateToken(userID, nil, 10*time.Minute)
	s.Require().NoError(err)
	return token
}

// GrpcConn dials the server with a logging interceptor.
func (s *BaseSuite) GrpcConn(t *testing.T, name string) *grpc.ClientConn {
	s.header(t, name)

	conn, err := grpc.NewClient(s.Config.GRPCAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
			if s.Config.DebugJSON {
				fmt.Fprintln(&logBuilder, "\nREQUEST:")
				fmt.Fprintln(&logBuilder, indent(req))
				if err != nil {
					fmt.Fprintln(&logBuilder, "ERROR:", err)
				} else {
					fmt.Fprintln(&logBuilder, "RESPONSE:")
					fmt.Fprintln(&logBuilder, indent(reply))
				}
			}
			t.Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.GRPCAddr)
	return conn
}

// WithEvents provides an Events client authenticated as userID.
func (s *BaseSuite) WithEvents(name string, userID domain.UserID, fn func(ctx context.Context, client *grpcapi.EventsClient)) {
	conn := s.GrpcConn(s.T(), name)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+s.Token(userID))

	fn(ctx, grpcapi.NewEventsClient(conn))
}

// PostJSON calls the HTTP API as userID and decodes the reply into out.
func (s *BaseSuite) PostJSON(userID domain.UserID, path string, body, out any) int {
	s.header(s.T(), "POST "+path)
	payload, err := json.Marshal(body)
	s.Require().NoError(err)

	request, err := http.NewRequest(http.MethodPost, s.Config.HTTPAddr+path, bytes.NewReader(payload))
	s.Require().NoError(err)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+s.Token(userID))

	resp, err := http.DefaultClient.Do(request)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if s.Config.DebugJSON {
		s.T().Logf("HTTP %d\n%s", resp.StatusCode, raw)
	}
	if out != nil && len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, out))
	}
	return resp.StatusCode
}

func indent(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(out)
}
