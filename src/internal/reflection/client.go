// Package reflection lists the services a running updater exposes over gRPC
// server reflection.
package reflection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// MethodDetail represents a gRPC method with input/output types
type MethodDetail struct {
	Name       string `json:"name"`
	InputType  string `json:"input_type"`
	OutputType string `json:"output_type"`
}

// ServiceDetail represents a service and its methods
type ServiceDetail struct {
	Name    string         `json:"service"`
	Methods []MethodDetail `json:"methods"`
}

// Client is a gRPC reflection client
type Client struct {
	timeout time.Duration
}

// NewClient creates a new reflection client
func NewClient() *Client {
	return &Client{
		timeout: 5 * time.Second,
	}
}

// ListServices returns every service registered at address except the
// reflection services, sorted by name
func (c *Client) ListServices(ctx context.Context, address string) ([]ServiceDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer conn.Close()

	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create reflection stream: %w", err)
	}
	defer stream.CloseSend()

	if err := stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{},
	}); err != nil {
		return nil, fmt.Errorf("failed to send list services request: %w", err)
	}

	resp, err := stream.Recv()
	if err != nil {
		return nil, fmt.Errorf("failed to receive response: %w", err)
	}

	serviceList, ok := resp.MessageResponse.(*reflectionpb.ServerReflectionResponse_ListServicesResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T", resp.MessageResponse)
	}

	var services []ServiceDetail
	for _, svc := range serviceList.ListServicesResponse.Service {
		name := svc.GetName()
		if strings.HasPrefix(name, "grpc.reflection.") {
			continue
		}

		detail := ServiceDetail{Name: name}
		if err := stream.Send(&reflectionpb.ServerReflectionRequest{
			MessageRequest: &reflectionpb.ServerReflectionRequest_FileContainingSymbol{
				FileContainingSymbol: name,
			},
		}); err != nil {
			return nil, fmt.Errorf("failed to request descriptor for %s: %w", name, err)
		}

		fileResp, err := stream.Recv()
		if err != nil {
			return nil, fmt.Errorf("failed to receive descriptor for %s: %w", name, err)
		}
		detail.Methods = extractMethods(fileResp, name)
		services = append(services, detail)
	}

	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

// extractMethods parses the FileDescriptorProtos of a reflection response and
// returns the methods of serviceName
func extractMethods(resp *reflectionpb.ServerReflectionResponse, serviceName string) []MethodDetail {
	fdResp, ok := resp.MessageResponse.(*reflectionpb.ServerReflectionResponse_FileDescriptorResponse)
	if !ok {
		return nil
	}

	var methods []MethodDetail
	for _, fdBytes := range fdResp.FileDescriptorResponse.FileDescriptorProto {
		fd := &descriptorpb.FileDescriptorProto{}
		if err := proto.Unmarshal(fdBytes, fd); err != nil {
			continue
		}

		for _, svc := range fd.Service {
			if fd.GetPackage()+"."+svc.GetName() != serviceName {
				continue
			}
			for _, method := range svc.Method {
				methods = append(methods, MethodDetail{
					Name:       method.GetName(),
					InputType:  strings.TrimPrefix(method.GetInputType(), "."),
					OutputType: strings.TrimPrefix(method.GetOutputType(), "."),
				})
			}
		}
	}
	return methods
}
