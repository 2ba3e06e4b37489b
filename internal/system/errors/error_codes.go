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

package errors

const errorPrefix = "TRG-"

var (
	// Server error codes

	ADD_EVENT = ErrorMessage{
		Code:    errorPrefix + "15001",
		Message: "Error while storing behavior event.",
	}

	GET_EVENT = ErrorMessage{
		Code:    errorPrefix + "15002",
		Message: "Error while fetching behavior event(s).",
	}

	UPDATE_EVENT = ErrorMessage{
		Code:    errorPrefix + "15003",
		Message: "Error while updating behavior event.",
	}

	ADD_TRIGGER_RULE = ErrorMessage{
		Code:    errorPrefix + "15004",
		Message: "Error while adding trigger rule.",
	}

	GET_TRIGGER_RULE = ErrorMessage{
		Code:    errorPrefix + "15005",
		Message: "Error while fetching trigger rule(s).",
	}

	UPDATE_TRIGGER_RULE = ErrorMessage{
		Code:    errorPrefix + "15006",
		Message: "Error while updating trigger rule.",
	}

	DELETE_TRIGGER_RULE = ErrorMessage{
		Code:    errorPrefix + "15007",
		Message: "Error while deleting trigger rule.",
	}

	ADD_EXECUTION = ErrorMessage{
		Code:    errorPrefix + "15008",
		Message: "Error while recording trigger execution.",
	}

	GET_EXECUTION = ErrorMessage{
		Code:    errorPrefix + "15009",
		Message: "Error while fetching trigger execution(s).",
	}

	UPDATE_EXECUTION = ErrorMessage{
		Code:    errorPrefix + "15010",
		Message: "Error while updating trigger execution.",
	}

	SUMMARIZE_ANALYTICS = ErrorMessage{
		Code:    errorPrefix + "15011",
		Message: "Error while summarizing trigger analytics.",
	}

	DB_CLIENT_INIT = ErrorMessage{
		Code:    errorPrefix + "15012",
		Message: "Error while initializing the database client.",
	}

	LOCK_KEY_GEN = ErrorMessage{
		Code:    errorPrefix + "15013",
		Message: "Error while generating the advisory lock key.",
	}

	LOCK_ACQUIRE = ErrorMessage{
		Code:    errorPrefix + "15014",
		Message: "Error while acquiring the advisory lock.",
	}

	DISPATCH_ACTION = ErrorMessage{
		Code:    errorPrefix + "15015",
		Message: "Error while dispatching trigger action.",
	}

	CHANNEL_CALL = ErrorMessage{
		Code:    errorPrefix + "15016",
		Message: "Error while calling the downstream channel.",
	}

	PUBLISH_LIFECYCLE = ErrorMessage{
		Code:    errorPrefix + "15017",
		Message: "Error while publishing execution lifecycle event.",
	}

	PARSING_ERROR = ErrorMessage{
		Code:    errorPrefix + "15018",
		Message: "Error while parsing the token.",
	}

	MIGRATION = ErrorMessage{
		Code:    errorPrefix + "15019",
		Message: "Error while applying database migrations.",
	}

	ENQUEUE_EVENT = ErrorMessage{
		Code:    errorPrefix + "15020",
		Message: "Error while queuing behavior event for processing.",
	}

	// Client error codes

	INVALID_EVENT = ErrorMessage{
		Code:    errorPrefix + "11001",
		Message: "Invalid behavior event.",
	}

	EVENT_NOT_FOUND = ErrorMessage{
		Code:    errorPrefix + "11002",
		Message: "Behavior event not found.",
	}

	INVALID_TRIGGER_RULE = ErrorMessage{
		Code:    errorPrefix + "11003",
		Message: "Invalid trigger rule.",
	}

	TRIGGER_RULE_NOT_FOUND = ErrorMessage{
		Code:    errorPrefix + "11004",
		Message: "Trigger rule not found.",
	}

	MALFORMED_CONDITION = ErrorMessage{
		Code:    errorPrefix + "11005",
		Message: "Malformed trigger condition.",
	}

	MALFORMED_ACTION_CONFIG = ErrorMessage{
		Code:    errorPrefix + "11006",
		Message: "Malformed action configuration.",
	}

	EXECUTION_NOT_FOUND = ErrorMessage{
		Code:    errorPrefix + "11007",
		Message: "Trigger execution not found.",
	}

	INVALID_EXECUTION_TRANSITION = ErrorMessage{
		Code:    errorPrefix + "11008",
		Message: "Trigger execution cannot move to the requested status.",
	}

	INVALID_CONVERSION = ErrorMessage{
		Code:    errorPrefix + "11009",
		Message: "Invalid conversion report.",
	}

	UN_AUTHORIZED = ErrorMessage{
		Code:        errorPrefix + "11010",
		Message:     "Unauthorized.",
		Description: "Missing or invalid credentials.",
	}

	FORBIDDEN = ErrorMessage{
		Code:        errorPrefix + "11011",
		Message:     "Forbidden.",
		Description: "Insufficient permissions to perform this operation.",
	}

	BAD_REQUEST = ErrorMessage{
		Code:    errorPrefix + "11012",
		Message: "Bad request.",
	}

	INVALID_WINDOW = ErrorMessage{
		Code:    errorPrefix + "11013",
		Message: "Invalid analytics window.",
	}
)
