// Copyright 2025 Poiesic Systems
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

// Package hooks notifies external HTTP endpoints about CI events.
//
// Subscribers are declared in a YAML file, one entry per endpoint:
//
//	- name: lava-bridge
//	  url: https://bridge.example.org/notify
//	  token: secret
//	  method: put
//	  hooks:
//	    lava:
//	    build: https://bridge.example.org/builds
//
// The keys under hooks are the event types the subscriber receives; a value
// overrides url for that event. A sequence of event names is also accepted.
//
// A Registry loads the file once and routes event types to valid subscribers.
// A Dispatcher delivers a JSON payload to every subscriber of an event type
// and reports one Outcome per subscriber. Connectivity failures are retried;
// an endpoint that answers with a non-2xx status is not.
package hooks
