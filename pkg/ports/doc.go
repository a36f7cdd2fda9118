/*
Package ports defines the driven ports (interfaces) of the convo engine.

These interfaces decouple the dialog engine from the platform that carries
messages and from the storage that keeps dialogs alive between turns.

# Key Interfaces

  - Transport: the Messaging Transport receiving rendered lines.
  - StateStore: the Persistent Turn Store saving and loading dialog State.
  - ScriptRegistry: resolves script IDs (for BeginDialog and child dialogs).
  - DistributedLocker: serializes turns of one session across replicas.
  - DialogEngine: the stateless engine contract used by hosts.
*/
package ports
