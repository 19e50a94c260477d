// Command mask-identities replaces personal identifiers in a document with
// type labels such as PERSON1 or IDENTIFIER:EMAIL.
//
// Entities are found by a remote extraction service; masking itself is local.
// The masked text is written to stdout and diagnostics go to stderr:
//
//	mask-identities -i letter.txt -t PERSON -t IDENTIFIER:EMAIL > masked.txt
//	mask-identities -u -i https://example.com/page.html
//	mask-identities serve
package main
