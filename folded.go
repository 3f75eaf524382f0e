/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package folded

import (
	"github.com/tomoncle/folded/database"
	"github.com/tomoncle/folded/types"
)

var currentPage types.CurrentPage

// AddDatabaseConnection validates descriptor and queues it on the default
// capsule. The first queued descriptor becomes the "default" connection.
func AddDatabaseConnection(descriptor database.ConnectionDescriptor) error {
	return database.DefaultCapsule().AddConnection(descriptor)
}

// EnableEventSystem attaches the model event dispatcher at the next boot.
func EnableEventSystem() {
	database.DefaultCapsule().EnableEvents()
}

func DisableEventSystem() {
	database.DefaultCapsule().DisableEvents()
}

// Events is the dispatcher of the default capsule.
func Events() *database.Dispatcher {
	return database.DefaultCapsule().Events()
}

// Clear forgets every queued connection and resets the boot state of the
// default capsule. The page resolver falls back to page 1.
func Clear() {
	database.DefaultCapsule().Clear()
	currentPage.SetResolver(nil)
}

// SetPageResolver replaces the resolver Paginate reads the current page
// from; nil restores page 1.
func SetPageResolver(resolver types.PageResolver) {
	currentPage.SetResolver(resolver)
}
