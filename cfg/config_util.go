// Copyright 2026 The Drivefuse Authors
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

package cfg

// ChunkSizeBytes returns the configured read-cache chunk size in bytes,
// falling back to DefaultChunkSizeMb when unset.
func (c *Config) ChunkSizeBytes() int64 {
	mb := c.Cache.ChunkSizeMb
	if mb <= 0 {
		mb = DefaultChunkSizeMb
	}
	return mb * 1024 * 1024
}
