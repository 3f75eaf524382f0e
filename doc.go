// Package folded validates database connection descriptors, boots a bun
// engine over them on first model use and exposes thin generic models.
//
//	_ = folded.AddDatabaseConnection(database.ConnectionDescriptor{
//		"driver":   "sqlite",
//		"database": "app.db",
//	})
//	posts := folded.NewModel[Post]()
//	all, err := posts.All(ctx)
package folded
