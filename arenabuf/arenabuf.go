// Copyright 2025 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package arenabuf provisions the []byte a Pool manages. It exists purely
// as a convenience constructor; any byte slice of adequate length and
// lifetime works equally well as arena.New's argument.
package arenabuf

import "github.com/bytedance/gopkg/lang/dirtmake"

// New returns a size-byte buffer suitable for arena.New. Its contents are
// left uninitialized: arena.New writes the sentinel itself, every block
// header is written when the block is carved, and payloads are zeroed on
// Malloc and Free, so zero-filling here would be wasted work.
func New(size int) []byte {
	return dirtmake.Bytes(size, size)
}
