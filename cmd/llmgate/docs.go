package main

// General API documentation for swaggo. Run `swag init -g cmd/llmgate/docs.go -o docs` to regenerate docs.
//
// @title           llmgate API
// @version         1.0
// @description     Streams chat completions from a local llama.cpp model as NDJSON.
//
// @contact.name   llmgate maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
