// Package language maps language codes between the forms subtrans meets:
// translation service codes ("fr", "pt-BR"), Matroska stream tags ("fra",
// "fre"), and human-readable names for track titles.
//
// A small table covers the common subtitle languages including ISO 639-2/B
// aliases; anything else goes through golang.org/x/text.
package language
