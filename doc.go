// Package threadlink provides high-level helpers for correlating outbound
// support actions with the conversation threads a third-party helpdesk
// asynchronously creates for them.
//
// The package glues the correlation core (registry, resolver) with concrete
// collaborators (the helpdesk API client, the SMTP trigger, the inbound
// callback receiver) and convenience configuration structures. In practice
// it is used as an umbrella package exposing two primary entry points:
//  1. New – returns a fully wired Service around a resolver façade and
//  2. Service.HTTP – returns an http.Server hosting the callback receiver
//     and the resolve endpoint.
//
// The constructor accepts an Options structure that can be populated from
// CLI flags or configuration files, making it straightforward to run the
// engine in push (callback driven) or poll (listing driven) mode.
//
// Example:
//
//	svc, _ := threadlink.New(ctx, &threadlink.Options{ /* … */ })
//	srv := svc.HTTP(ctx, ":8087")
//	_ = srv.ListenAndServe()
package threadlink
