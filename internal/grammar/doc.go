// Package grammar reads declarative grammar files and compiles them into a
// candidate generator and a ranked constraint list.
//
// A grammar file holds the phoneme inventory as a feature table, the
// generator settings and the constraints in ranking order, highest first.
// YAML and TOML are accepted; the format follows the file extension.
//
//	name: en2hw
//	method: matching
//	inventory:
//	  phonemes:
//	    a: {syllabic: "+", consonantal: "-"}
//	    p: {syllabic: "-", consonantal: "+"}
//	generator:
//	  output: [a, p]
//	  syllabifier: {kind: nuclear}
//	constraints:
//	  - kind: maximality
//	    name: Max(IO)
//	  - kind: faithfulness_bundle
//	    name: ID(cons)
//	    bundles: [consonantal]
//
// Phoneme patterns combine literal phonemes with the phonemes carrying a set
// of signed features, minus an exception list. Unknown features are logged
// and match nothing.
package grammar
