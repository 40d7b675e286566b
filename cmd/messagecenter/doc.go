// Package main provides the messagecenter command, a terminal host for the
// Message Center session controller.
//
// # Usage
//
// Open the session:
//
//	messagecenter chat
//	messagecenter chat --trigger enjoyment_dialog --initial-email me@example.com
//
// Inspect and reset local state:
//
//	messagecenter history --format yaml
//	messagecenter reset --identity
//
// # Configuration
//
// Settings come from the YAML file named by --config, overridden by
// MESSAGECENTER_* environment variables:
//
//	message_center_enabled: true
//	message_center_email_required: false
//	message_center_fg_poll_seconds: 8
//	app_display_name: Acme
//	store_path: /var/lib/acme/messagecenter.db
//	attachment_dir: /var/lib/acme/attachments
//
// The backend is the in-process loopback transport, which acknowledges every
// payload and can answer each message with --auto-reply.
package main
