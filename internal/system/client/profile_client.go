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

package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/wso2/commerce-trigger-service/internal/system/cache"
	"github.com/wso2/commerce-trigger-service/internal/system/log"
)

// ProfileUpdater changes a customer's tags and segments.
type ProfileUpdater interface {
	AssignTag(ctx context.Context, ownerId, customerKey, tag string) error
	AddToSegment(ctx context.Context, ownerId, customerKey, segment string) error
}

// SegmentLookup answers segment membership questions for condition evaluation.
type SegmentLookup interface {
	IsMember(ctx context.Context, ownerId, customerKey, segment string) (bool, error)
}

// ProfileClient talks to the customer profile service. Membership answers are
// cached for a short TTL because segment_match rules can ask on every event.
type ProfileClient struct {
	caller      jsonCaller
	memberships *cache.Cache
}

var (
	_ ProfileUpdater = (*ProfileClient)(nil)
	_ SegmentLookup  = (*ProfileClient)(nil)
)

func NewProfileClient(baseURL, apiKey string, httpClient *http.Client, membershipTTL time.Duration) *ProfileClient {
	return &ProfileClient{
		caller:      newJSONCaller(baseURL, apiKey, httpClient),
		memberships: cache.NewCache(membershipTTL),
	}
}

func profilePath(ownerId, customerKey string) string {
	return fmt.Sprintf("/owners/%s/customers/%s", url.PathEscape(ownerId), url.PathEscape(customerKey))
}

func membershipKey(ownerId, customerKey, segment string) string {
	return ownerId + "|" + customerKey + "|" + segment
}

func (c *ProfileClient) AssignTag(ctx context.Context, ownerId, customerKey, tag string) error {
	return c.caller.post(ctx, profilePath(ownerId, customerKey)+"/tags", map[string]string{"tag": tag}, nil)
}

func (c *ProfileClient) AddToSegment(ctx context.Context, ownerId, customerKey, segment string) error {

	err := c.caller.post(ctx, profilePath(ownerId, customerKey)+"/segments",
		map[string]string{"segment": segment}, nil)
	if err != nil {
		return err
	}
	c.memberships.Set(membershipKey(ownerId, customerKey, segment), true)
	return nil
}

func (c *ProfileClient) IsMember(ctx context.Context, ownerId, customerKey, segment string) (bool, error) {

	key := membershipKey(ownerId, customerKey, segment)
	if cached, ok := c.memberships.Get(key); ok {
		return cached.(bool), nil
	}

	var result struct {
		Member bool `json:"member"`
	}
	path := profilePath(ownerId, customerKey) + "/segments/" + url.PathEscape(segment)
	if err := c.caller.get(ctx, path, &result); err != nil {
		log.GetLogger().Debug(fmt.Sprintf("Segment lookup failed for segment: %s", segment), log.Error(err))
		return false, err
	}
	c.memberships.Set(key, result.Member)
	return result.Member, nil
}
