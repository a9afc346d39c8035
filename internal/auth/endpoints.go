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

package auth

import "fmt"

// Endpoints names the API base and the refresh endpoint for a drive
// account. An empty domain ID selects the shared public endpoints; a
// non-empty one selects a dedicated domain deployment, which also requires
// an app_id on the refresh request.
type Endpoints struct {
	BaseURL    string
	RefreshURL string
	AppID      string
}

const (
	defaultBaseURL    = "https://api.aliyundrive.com"
	defaultRefreshURL = defaultBaseURL + "/token/refresh"
)

// ResolveEndpoints computes the API base and refresh endpoint for the given
// domain id, per the mount's configuration.
func ResolveEndpoints(domainID string) Endpoints {
	if domainID == "" {
		return Endpoints{BaseURL: defaultBaseURL, RefreshURL: defaultRefreshURL}
	}
	return Endpoints{
		BaseURL:    fmt.Sprintf("https://%s.api.aliyunpds.com", domainID),
		RefreshURL: fmt.Sprintf("https://%s.auth.aliyunpds.com/v2/account/token", domainID),
		AppID:      "BasicUI",
	}
}
