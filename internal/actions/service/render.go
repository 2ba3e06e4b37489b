/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package service

import (
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	eventModel "github.com/wso2/commerce-trigger-service/internal/behavior_events/model"
	"github.com/wso2/commerce-trigger-service/internal/system/constants"
	ruleModel "github.com/wso2/commerce-trigger-service/internal/trigger_rules/model"
)

// RenderRequest carries everything an action needs to render itself.
type RenderRequest struct {
	Rule        *ruleModel.TriggerRule
	Event       *eventModel.BehaviorEvent
	ExecutionId string
	// TrackingBaseURL is the public origin of the click tracking endpoint.
	TrackingBaseURL string
	Now             time.Time
}

// ClickURL is the tracked link for the execution. A redirect target is only
// attached when it is an absolute http(s) URL.
func (r RenderRequest) ClickURL(redirect string) string {

	link := strings.TrimRight(r.TrackingBaseURL, "/") + constants.TrackingBasePath + "/click/" +
		url.PathEscape(r.ExecutionId)
	if redirect != "" && ruleModel.IsAbsoluteHTTPURL(redirect) {
		link += "?redirect=" + url.QueryEscape(redirect)
	}
	return link
}

// templateData exposes the event payload plus a few engine supplied keys.
// Engine keys win over payload fields of the same name.
func (r RenderRequest) templateData() map[string]interface{} {

	data := make(map[string]interface{}, len(r.Event.Payload)+5)
	for k, v := range r.Event.Payload {
		data[k] = v
	}
	data["customer_key"] = r.Event.CustomerKey
	data["execution_id"] = r.ExecutionId
	data["event_type"] = r.Event.EventType
	data["rule_name"] = r.Rule.Name
	data["click_url"] = r.ClickURL("")
	return data
}

// render executes a text template over the request. Referencing a field the
// event does not carry is an error.
func (r RenderRequest) render(name, text string, extra map[string]interface{}) (string, error) {

	if text == "" {
		return "", nil
	}
	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(template.FuncMap{"track": r.ClickURL}).
		Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}
	data := r.templateData()
	for k, v := range extra {
		data[k] = v
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", name, err)
	}
	return out.String(), nil
}
