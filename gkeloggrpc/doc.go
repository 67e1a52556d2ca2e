// Copyright 2026 The gkelog Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gkeloggrpc provides gRPC server interceptors that give RPC
// traffic the same treatment gkeloghttp gives HTTP traffic: a forked gkelog
// scope per call, span ID extraction from incoming metadata, and exactly
// one completion log entry whose level follows the RPC status code.
//
//	server := grpc.NewServer(
//		grpc.UnaryInterceptor(gkeloggrpc.UnaryServerInterceptor(
//			gkeloggrpc.WithLogger(logger),
//		)),
//		grpc.StatsHandler(gkeloggrpc.StatsHandler()),
//	)
package gkeloggrpc
