// Package sentiment converts post text into a polarity score and label.
//
// Classification is pure and never fails: text the analyzer cannot score
// degrades to a 0.0 neutral score instead of returning an error.
package sentiment
