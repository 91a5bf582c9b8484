// Copyright © 2024 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
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

package types

type DeployOptions struct {
	Kind ProxyKind
	// Initializer is the function called through the proxy on deployment.
	// Empty means "initialize".
	Initializer string
	NoInit      bool
	// Redeploy forces a new implementation even if an identical one is in
	// the manifest.
	Redeploy bool
}

type UpgradeOptions struct {
	// Call is an optional function on the new implementation invoked as
	// part of the upgrade, with CallArgs as raw string arguments.
	Call     string
	CallArgs []string
	Kind     ProxyKind
	Redeploy bool
}
