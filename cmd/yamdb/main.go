// Command yamdb runs the review API and its maintenance tasks.
//
//	yamdb serve                                     start the HTTP API
//	yamdb loadcsv --dir static/data                 import the CSV data set
//	yamdb createsuperuser --username U --email E    create an administrator
//
// Settings come from the environment or a .env file; see internal/config.
package main

import "github.com/sakif/yamdb/cmd/yamdb/commands"

func main() {
	commands.Execute()
}
