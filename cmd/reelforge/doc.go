// Command reelforge turns two-character dialogues into vertical videos.
//
// Subcommands:
//
//	render    render a dialogue JSON file to an MP4
//	serve     run the HTTP API
//	dialogue  write a dialogue with the configured LLM
//	history   list or prune recorded renders
//	status    show readiness checks and binary availability
//	config    create or validate the configuration file
package main
