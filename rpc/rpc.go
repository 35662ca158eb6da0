package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/quotebot/engine"
	"github.com/wfunc/quotebot/logger"
	"github.com/wfunc/quotebot/models"
	"github.com/wfunc/quotebot/persistence"
)

// Server manages the RPC listener for operational tooling.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes read-only game state over net/rpc. Methods
// follow the net/rpc signature: exported method, exported arguments,
// second argument is a pointer, return type is error.
type AdminService struct {
	engine *engine.Engine
	rounds persistence.RoundStore
}

// NewAdminService creates the admin RPC service.
func NewAdminService(eng *engine.Engine, rounds persistence.RoundStore) *AdminService {
	return &AdminService{engine: eng, rounds: rounds}
}

type LeaderboardArgs struct{}

type LeaderboardReply struct {
	Rendered string
}

// Leaderboard returns the rendered standings.
func (a *AdminService) Leaderboard(args *LeaderboardArgs, reply *LeaderboardReply) error {
	board, err := a.engine.Leaderboard()
	if err != nil {
		return err
	}
	reply.Rendered = board
	return nil
}

type GetRoundArgs struct {
	RoundID string
}

type GetRoundReply struct {
	Round models.Round
	Found bool
}

// GetRound looks up a tracked round by its message ID.
func (a *AdminService) GetRound(args *GetRoundArgs, reply *GetRoundReply) error {
	round, found, err := a.rounds.Get(args.RoundID)
	if err != nil {
		return err
	}
	reply.Round = round
	reply.Found = found
	return nil
}
