// Package mailbox talks to a disposable mailbox service.
//
// Email-gated free downloads are delivered as a link in a message sent by
// Bandcamp. The resolver provisions a throwaway address through a Provider,
// hands it to Bandcamp, then polls the inbox until the message arrives.
//
// The Client in this package speaks the 1secmail protocol:
//
//	GET {api}?action=genRandomMailbox&count=1
//	GET {api}?action=getMessages&login={login}&domain={domain}
//	GET {api}?action=readMessage&login={login}&domain={domain}&id={id}
//
// Any service exposing the same three actions can be used by pointing the
// client at a different base URL.
//
// # Basic Usage
//
//	client, err := mailbox.NewClient(httpClient, "https://www.1secmail.com/api/v1/")
//	mb, err := client.Create(ctx)
//	msgs, err := client.Messages(ctx, mb)
//	msg, err := client.Read(ctx, mb, msgs[0].ID)
//	fmt.Println(msg.HTMLBody)
//
// Addresses are never persisted; each resolution provisions a fresh one.
package mailbox
