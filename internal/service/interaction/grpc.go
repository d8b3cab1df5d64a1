package interaction

import (
	"context"

	"google.golang.org/grpc"

	svcErr "github.com/oggyb/copal/internal/errors"
	"github.com/oggyb/copal/internal/server"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "copal.interaction.v1.InteractionService"

// PairRequest carries a subject → target decision.
type PairRequest struct {
	UserID   string `json:"userId"`
	TargetID string `json:"targetId"`
}

// UserRequest names a single user.
type UserRequest struct {
	UserID string `json:"userId"`
}

type LikeReply struct {
	Success      bool       `json:"success"`
	Created      bool       `json:"created"`
	AlreadyLiked bool       `json:"alreadyLiked,omitempty"`
	IsDummyData  bool       `json:"isDummyData,omitempty"`
	IsMatch      bool       `json:"isMatch"`
	Match        *MatchView `json:"match,omitempty"`
}

type PassReply struct {
	Success       bool `json:"success"`
	Created       bool `json:"created"`
	AlreadyPassed bool `json:"alreadyPassed,omitempty"`
	IsDummyData   bool `json:"isDummyData,omitempty"`
}

type AckReply struct {
	Success bool `json:"success"`
}

type MatchesReply struct {
	Success bool        `json:"success"`
	Matches []MatchView `json:"matches"`
}

type CountReply struct {
	Count int64 `json:"count"`
}

// InteractionServer is the server API for the interaction service.
type InteractionServer interface {
	RecordLike(context.Context, *PairRequest) (*LikeReply, error)
	RecordPass(context.Context, *PairRequest) (*PassReply, error)
	RemoveLike(context.Context, *PairRequest) (*AckReply, error)
	RemovePass(context.Context, *PairRequest) (*AckReply, error)
	ListMatches(context.Context, *UserRequest) (*MatchesReply, error)
	CountLikedYou(context.Context, *UserRequest) (*CountReply, error)
}

// GRPCServer adapts Service to InteractionServer.
type GRPCServer struct {
	svc *Service
}

func NewGRPCServer(svc *Service) *GRPCServer {
	return &GRPCServer{svc: svc}
}

func (g *GRPCServer) RecordLike(ctx context.Context, req *PairRequest) (*LikeReply, error) {
	res, err := g.svc.RecordLike(ctx, req.UserID, req.TargetID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	reply := &LikeReply{
		Success:      true,
		Created:      res.Created,
		AlreadyLiked: res.AlreadyLiked,
		IsDummyData:  res.NoOp,
		IsMatch:      res.IsMatch,
	}
	if res.Match != nil {
		reply.Match = &MatchView{
			ID:        res.Match.ID,
			CreatedAt: res.Match.CreatedAt,
			OtherUser: g.svc.userSummary(ctx, req.TargetID),
		}
	}
	return reply, nil
}

func (g *GRPCServer) RecordPass(ctx context.Context, req *PairRequest) (*PassReply, error) {
	res, err := g.svc.RecordPass(ctx, req.UserID, req.TargetID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &PassReply{Success: true, Created: res.Created, AlreadyPassed: res.AlreadyPassed, IsDummyData: res.NoOp}, nil
}

func (g *GRPCServer) RemoveLike(ctx context.Context, req *PairRequest) (*AckReply, error) {
	if err := g.svc.RemoveLike(ctx, req.UserID, req.TargetID); err != nil {
		return nil, svcErr.Map(err)
	}
	return &AckReply{Success: true}, nil
}

func (g *GRPCServer) RemovePass(ctx context.Context, req *PairRequest) (*AckReply, error) {
	if err := g.svc.RemovePass(ctx, req.UserID, req.TargetID); err != nil {
		return nil, svcErr.Map(err)
	}
	return &AckReply{Success: true}, nil
}

func (g *GRPCServer) ListMatches(ctx context.Context, req *UserRequest) (*MatchesReply, error) {
	matches, err := g.svc.ListMatches(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &MatchesReply{Success: true, Matches: matches}, nil
}

func (g *GRPCServer) CountLikedYou(ctx context.Context, req *UserRequest) (*CountReply, error) {
	n, err := g.svc.CountLikedYou(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &CountReply{Count: n}, nil
}

func unaryHandler[Req any, Reply any](method string, call func(InteractionServer, context.Context, *Req) (*Reply, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InteractionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InteractionServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes InteractionService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InteractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RecordLike", Handler: unaryHandler("RecordLike", InteractionServer.RecordLike)},
		{MethodName: "RecordPass", Handler: unaryHandler("RecordPass", InteractionServer.RecordPass)},
		{MethodName: "RemoveLike", Handler: unaryHandler("RemoveLike", InteractionServer.RemoveLike)},
		{MethodName: "RemovePass", Handler: unaryHandler("RemovePass", InteractionServer.RemovePass)},
		{MethodName: "ListMatches", Handler: unaryHandler("ListMatches", InteractionServer.ListMatches)},
		{MethodName: "CountLikedYou", Handler: unaryHandler("CountLikedYou", InteractionServer.CountLikedYou)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "copal/interaction/v1/interaction.json",
}

// Client calls InteractionService over a JSON-coded connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(server.CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *Client) RecordLike(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (*LikeReply, error) {
	out := new(LikeReply)
	if err := c.invoke(ctx, "RecordLike", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RecordPass(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (*PassReply, error) {
	out := new(PassReply)
	if err := c.invoke(ctx, "RecordPass", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RemoveLike(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (*AckReply, error) {
	out := new(AckReply)
	if err := c.invoke(ctx, "RemoveLike", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RemovePass(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (*AckReply, error) {
	out := new(AckReply)
	if err := c.invoke(ctx, "RemovePass", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMatches(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*MatchesReply, error) {
	out := new(MatchesReply)
	if err := c.invoke(ctx, "ListMatches", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CountLikedYou(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*CountReply, error) {
	out := new(CountReply)
	if err := c.invoke(ctx, "CountLikedYou", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
